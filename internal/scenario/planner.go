package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/sumo-flow-backend/internal/fsutil"
	"github.com/jengzang/sumo-flow-backend/internal/models"
)

// File names produced inside every scenario folder
const (
	SampleRoutesFile    = "sampleRoutes.rou.xml"
	GeneratedRoutesFile = "generatedRoutes.rou.xml"
	SimulationLogFile   = "sumo_log.txt"
)

var edgeDataPattern = regexp.MustCompile(`^edgedata_(\d{2})-(\d{2})-(\d{4})_(\d{2})\.xml$`)

// Options configures route generation
type Options struct {
	ToolsPath     string // directory holding randomTrips.py and routeSampler.py
	PythonBin     string
	NetworkPath   string
	CollectionDir string
	TotalVehicles int
	MinLoops      int
	Congestioned  bool
}

// Scenario is one generated route set
type Scenario struct {
	Name         string    `json:"name"`
	Folder       string    `json:"folder"`
	EdgeData     string    `json:"edge_data"`
	SampleRoutes string    `json:"sample_routes"`
	Routes       string    `json:"routes"`
	Date         time.Time `json:"date"`
	Hour         int       `json:"hour"`
	Simulated    bool      `json:"simulated"`
}

// Planner creates scenario folders and generates their routes
type Planner struct {
	opts   Options
	runner CommandRunner
	log    logrus.FieldLogger
}

// NewPlanner creates a planner; runner executes the SUMO tools
func NewPlanner(opts Options, runner CommandRunner, log logrus.FieldLogger) *Planner {
	if opts.PythonBin == "" {
		opts.PythonBin = "python3"
	}
	if opts.MinLoops <= 0 {
		opts.MinLoops = 1
	}
	return &Planner{opts: opts, runner: runner, log: log.WithField("component", "planner")}
}

// ParseEdgeDataName extracts date and hour from edgedata_dd-mm-yyyy_hh.xml
func ParseEdgeDataName(name string) (time.Time, int, bool) {
	m := edgeDataPattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, 0, false
	}
	date, err := time.Parse("02-01-2006", m[1]+"-"+m[2]+"-"+m[3])
	if err != nil {
		return time.Time{}, 0, false
	}
	hour, _ := strconv.Atoi(m[4])
	if hour >= models.HoursPerDay {
		return time.Time{}, 0, false
	}
	return date, hour, true
}

// validate checks the preconditions shared by every route generation
func (p *Planner) validate(edgeFile string) error {
	if edgeFile == "" {
		return fmt.Errorf("no edge file provided")
	}
	if p.opts.TotalVehicles <= 0 {
		return fmt.Errorf("total vehicles must be positive, got %d", p.opts.TotalVehicles)
	}
	info, err := os.Stat(p.opts.ToolsPath)
	if err != nil {
		return &models.MissingInputError{Path: p.opts.ToolsPath, WrappedErr: err}
	}
	if !info.IsDir() {
		return &models.MissingInputError{Path: p.opts.ToolsPath, WrappedErr: fmt.Errorf("not a directory")}
	}
	if _, err := os.Stat(edgeFile); err != nil {
		return &models.MissingInputError{Path: edgeFile, WrappedErr: err}
	}
	return nil
}

// RandomTripsArgs returns the randomTrips.py invocation writing sampleRoutes
func (p *Planner) RandomTripsArgs(folder string) []string {
	return []string{
		filepath.Join(p.opts.ToolsPath, "randomTrips.py"),
		"-n", p.opts.NetworkPath,
		"-r", filepath.Join(folder, SampleRoutesFile),
		"--fringe-factor", "10",
		"--random",
		"--min-distance", "100",
		"--random-factor", "200",
	}
}

// RouteSamplerArgs returns the routeSampler.py invocation fitting the sample
// routes to the counts of edgeFile
func (p *Planner) RouteSamplerArgs(folder, edgeFile string) []string {
	return []string{
		filepath.Join(p.opts.ToolsPath, "routeSampler.py"),
		"-r", filepath.Join(folder, SampleRoutesFile),
		"--edgedata-files", edgeFile,
		"-o", filepath.Join(folder, GeneratedRoutesFile),
		"--total-count", strconv.Itoa(p.opts.TotalVehicles),
		"--optimize", "full",
		"--min-count", strconv.Itoa(p.opts.MinLoops),
	}
}

// GenerateRoutes runs randomTrips.py then routeSampler.py for edgeFile,
// writing both route files into folder
func (p *Planner) GenerateRoutes(ctx context.Context, edgeFile, folder string) (*Scenario, error) {
	if err := p.validate(edgeFile); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scenario folder: %w", err)
	}

	if out, err := p.runner.Run(ctx, p.opts.PythonBin, p.RandomTripsArgs(folder)...); err != nil {
		return nil, fmt.Errorf("randomTrips failed: %w, output: %s", err, string(out))
	}
	if out, err := p.runner.Run(ctx, p.opts.PythonBin, p.RouteSamplerArgs(folder, edgeFile)...); err != nil {
		return nil, fmt.Errorf("routeSampler failed: %w, output: %s", err, string(out))
	}

	sc := &Scenario{
		Name:         filepath.Base(folder),
		Folder:       folder,
		EdgeData:     edgeFile,
		SampleRoutes: filepath.Join(folder, SampleRoutesFile),
		Routes:       filepath.Join(folder, GeneratedRoutesFile),
	}
	p.log.WithFields(logrus.Fields{"scenario": sc.Name, "vehicles": p.opts.TotalVehicles}).Info("routes generated")
	return sc, nil
}

// ScenarioFolderName names an ad hoc scenario folder after its creation time
// and congestion flag
func (p *Planner) ScenarioFolderName(now time.Time) string {
	kind := "basic"
	if p.opts.Congestioned {
		kind = "congestioned"
	}
	return now.Format("2006-01-02_15-04-05") + "_" + kind
}

// PlanOne generates routes for a single edge data file in a new timestamped folder
func (p *Planner) PlanOne(ctx context.Context, edgeFile string, now time.Time) (*Scenario, error) {
	folder := filepath.Join(p.opts.CollectionDir, p.ScenarioFolderName(now))
	return p.GenerateRoutes(ctx, edgeFile, folder)
}

// PlanAll generates one scenario per edgedata_dd-mm-yyyy_hh.xml file in
// baseFolder, in file name order. Each scenario folder is named
// dd-mm-yyyy_hh-00 and receives a copy of its edge data file. When sim is
// not nil every scenario is simulated before the next one is generated.
func (p *Planner) PlanAll(ctx context.Context, baseFolder string, sim *Simulator) ([]Scenario, error) {
	entries, err := os.ReadDir(baseFolder)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &models.MissingInputError{Path: baseFolder, WrappedErr: err}
		}
		return nil, fmt.Errorf("failed to list %s: %w", baseFolder, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []Scenario
	for _, name := range names {
		date, hour, ok := ParseEdgeDataName(name)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		folder := filepath.Join(p.opts.CollectionDir, fmt.Sprintf("%s_%02d-00", date.Format("02-01-2006"), hour))
		src := filepath.Join(baseFolder, name)
		if err := os.MkdirAll(folder, 0o755); err != nil {
			return out, fmt.Errorf("failed to create scenario folder: %w", err)
		}
		if err := copyFile(src, filepath.Join(folder, name)); err != nil {
			return out, err
		}

		sc, err := p.GenerateRoutes(ctx, src, folder)
		if err != nil {
			return out, fmt.Errorf("scenario %s: %w", name, err)
		}
		sc.Date, sc.Hour = date, hour

		if sim != nil {
			if err := sim.Run(ctx, sc.Routes, filepath.Join(folder, SimulationLogFile)); err != nil {
				return out, fmt.Errorf("scenario %s: %w", name, err)
			}
			sc.Simulated = true
		}
		out = append(out, *sc)
	}

	p.log.WithFields(logrus.Fields{"base": baseFolder, "scenarios": len(out)}).Info("scenarios planned")
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	return fsutil.WriteAtomic(dst, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}
