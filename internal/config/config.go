package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config 应用配置
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string
	LogLevel  string

	// PipelineInterval re-runs the pipeline periodically when > 0
	PipelineInterval time.Duration

	Paths    Paths
	Pipeline Pipeline
	Scenario Scenario
}

// Paths holds every file the pipeline reads or writes
type Paths struct {
	FlowInput     string // open-data traffic flow CSV
	AccuracyInput string // per-hour loop accuracy CSV
	AccurateFlow  string // flow rows surviving the accuracy filter
	RoadNames     string // road name -> edge id table
	ProcessedFlow string // flow rows linked to edge ids
	DailyFlowDir  string // daily_flow_dd-mm-yyyy.csv files
	Network       string // SUMO .net.xml
	Detectors     string // induction loop additional file
	EdgeData      string // single edge data file for EdgeDataDate/EdgeDataSlot
	HourlyEdgeDir string // edgedata_dd-mm-yyyy_hh.xml files
}

// Pipeline holds the preprocessing parameters
type Pipeline struct {
	DateColumn        string
	SensorColumn      string
	AccuracyThreshold int
	StrictAccuracy    bool
	SearchRadius      float64
	ExcludedTypes     []string
	GeoTolerance      float64 // meters between geopoint and lat/lon before warning

	// Optional date range (mm/dd/yyyy, inclusive); empty disables the filter
	RangeStart string
	RangeEnd   string

	EdgeDataDate     string // dd/mm/yyyy or yyyy-mm-dd
	EdgeDataSlot     string // HH:MM-HH:MM
	EdgeDataDuration int    // interval end override in seconds, 0 uses the slot length
	GenerateDaily    bool
	GenerateHourly   bool
}

// Scenario holds the route generation and simulation settings
type Scenario struct {
	ToolsPath     string // SUMO tools directory containing randomTrips.py and routeSampler.py
	PythonBin     string
	SumoBinary    string
	SumoGUIBinary string
	SumoConfig    string
	CollectionDir string
	TotalVehicles int
	MinLoops      int
	Congestioned  bool
	Generate      bool // plan one scenario per hourly edge data file after preprocessing
	RunSimulation bool
	ActiveGUI     bool
}

// DefaultExcludedTypes are road classes never chosen as sensor edges unless the name matches
var DefaultExcludedTypes = []string{
	"highway.pedestrian",
	"highway.track",
	"highway.footway",
	"highway.path",
	"highway.cycleway",
	"highway.steps",
}

// Load 加载配置
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	}

	cfg := &Config{
		Port:      getEnv("PORT", ":8080"),
		DBPath:    getEnv("DB_PATH", "./data/pipeline.db"),
		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		Paths: Paths{
			FlowInput:     getEnv("FLOW_INPUT", "data/traffic_flow_2024.csv"),
			AccuracyInput: getEnv("ACCURACY_INPUT", "data/accuracy_loops_2024.csv"),
			AccurateFlow:  getEnv("ACCURATE_FLOW", "data/accurate_traffic_flow.csv"),
			RoadNames:     getEnv("ROAD_NAMES", "data/road_names.csv"),
			ProcessedFlow: getEnv("PROCESSED_FLOW", "data/processed_traffic_flow.csv"),
			DailyFlowDir:  getEnv("DAILY_FLOW_DIR", "data"),
			Network:       getEnv("NETWORK_PATH", "configs/joined_lanes.net.xml"),
			Detectors:     getEnv("DETECTORS_PATH", "configs/detectors.add.xml"),
			EdgeData:      getEnv("EDGEDATA_PATH", "configs/edgedata.xml"),
			HourlyEdgeDir: getEnv("HOURLY_EDGEDATA_DIR", "configs/TestData_UnMese"),
		},
		Pipeline: Pipeline{
			DateColumn:        getEnv("DATE_COLUMN", "data"),
			SensorColumn:      getEnv("SENSOR_COLUMN", "codice_spira"),
			AccuracyThreshold: getEnvInt("ACCURACY_THRESHOLD", 90),
			StrictAccuracy:    getEnvBool("STRICT_ACCURACY", false),
			SearchRadius:      getEnvFloat("SEARCH_RADIUS", 25),
			ExcludedTypes:     getEnvList("EXCLUDED_ROAD_TYPES", DefaultExcludedTypes),
			GeoTolerance:      getEnvFloat("GEO_TOLERANCE", 50),
			RangeStart:        getEnv("RANGE_START", ""),
			RangeEnd:          getEnv("RANGE_END", ""),
			EdgeDataDate:      getEnv("EDGEDATA_DATE", "01/02/2024"),
			EdgeDataSlot:      getEnv("EDGEDATA_SLOT", "07:00-08:00"),
			EdgeDataDuration:  getEnvInt("EDGEDATA_DURATION", 0),
			GenerateDaily:     getEnvBool("GENERATE_DAILY", true),
			GenerateHourly:    getEnvBool("GENERATE_HOURLY", true),
		},
		Scenario: Scenario{
			ToolsPath:     getEnv("SUMO_TOOLS", "/usr/share/sumo/tools"),
			PythonBin:     getEnv("PYTHON_BIN", "python3"),
			SumoBinary:    getEnv("SUMO_BINARY", "sumo"),
			SumoGUIBinary: getEnv("SUMO_GUI_BINARY", "sumo-gui"),
			SumoConfig:    getEnv("SUMO_CONFIG", "configs/run.sumocfg"),
			CollectionDir: getEnv("SCENARIO_DIR", "configs/scenarioCollection"),
			TotalVehicles: getEnvInt("TOTAL_VEHICLES", 100),
			MinLoops:      getEnvInt("MIN_LOOPS", 2),
			Congestioned:  getEnvBool("CONGESTIONED", false),
			Generate:      getEnvBool("GENERATE_SCENARIOS", false),
			RunSimulation: getEnvBool("RUN_SIMULATION", false),
			ActiveGUI:     getEnvBool("ACTIVE_GUI", false),
		},
	}

	interval, err := time.ParseDuration(getEnv("PIPELINE_INTERVAL", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PIPELINE_INTERVAL: %w", err)
	}
	cfg.PipelineInterval = interval

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that would otherwise fail deep inside a stage
func (c *Config) Validate() error {
	if c.Pipeline.AccuracyThreshold < 0 || c.Pipeline.AccuracyThreshold > 100 {
		return fmt.Errorf("ACCURACY_THRESHOLD must be within [0,100], got %d", c.Pipeline.AccuracyThreshold)
	}
	if c.Pipeline.SearchRadius <= 0 {
		return fmt.Errorf("SEARCH_RADIUS must be positive, got %v", c.Pipeline.SearchRadius)
	}
	if (c.Pipeline.RangeStart == "") != (c.Pipeline.RangeEnd == "") {
		return fmt.Errorf("RANGE_START and RANGE_END must be set together")
	}
	if c.Pipeline.GeoTolerance < 0 {
		return fmt.Errorf("GEO_TOLERANCE must not be negative, got %v", c.Pipeline.GeoTolerance)
	}
	if c.Pipeline.EdgeDataDuration < 0 {
		return fmt.Errorf("EDGEDATA_DURATION must not be negative, got %d", c.Pipeline.EdgeDataDuration)
	}
	if c.Scenario.TotalVehicles <= 0 {
		return fmt.Errorf("TOTAL_VEHICLES must be positive, got %d", c.Scenario.TotalVehicles)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return nil
}

// NewLogger builds the process logger from LogLevel
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		out := make([]string, len(fallback))
		copy(out, fallback)
		return out
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
