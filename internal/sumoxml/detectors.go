package sumoxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

// Induction loop defaults used when placing one detector per mapped sensor
const (
	DefaultLoopPos  = -5.0
	DefaultLoopFreq = 1800
	DefaultLoopFile = "e1_real_output.xml"
)

// InductionLoop is a point detector placed on a lane
type InductionLoop struct {
	ID   string  `json:"id"`
	Lane string  `json:"lane"`
	Pos  float64 `json:"pos"`
	Freq int     `json:"freq"`
	File string  `json:"file"`
}

type xmlAdditional struct {
	XMLName xml.Name           `xml:"additional"`
	Loops   []xmlInductionLoop `xml:"inductionLoop"`
}

type xmlInductionLoop struct {
	ID   string `xml:"id,attr"`
	Lane string `xml:"lane,attr"`
	Pos  string `xml:"pos,attr"`
	Freq string `xml:"freq,attr"`
	File string `xml:"file,attr"`
}

// WriteDetectors encodes loops as an additional file
func WriteDetectors(w io.Writer, loops []InductionLoop) error {
	doc := xmlAdditional{Loops: make([]xmlInductionLoop, 0, len(loops))}
	for _, l := range loops {
		doc.Loops = append(doc.Loops, xmlInductionLoop{
			ID:   l.ID,
			Lane: l.Lane,
			Pos:  strconv.FormatFloat(l.Pos, 'f', -1, 64),
			Freq: strconv.Itoa(l.Freq),
			File: l.File,
		})
	}
	return encode(w, doc)
}

// WriteDetectorsFile writes loops to path, creating parent directories
func WriteDetectorsFile(path string, loops []InductionLoop) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteDetectors(w, loops)
	})
}

// ReadDetectors decodes an additional file, keeping only induction loops
func ReadDetectors(r io.Reader) ([]InductionLoop, error) {
	var doc xmlAdditional
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode detectors: %w", err)
	}
	out := make([]InductionLoop, 0, len(doc.Loops))
	for _, xl := range doc.Loops {
		pos, err := strconv.ParseFloat(xl.Pos, 64)
		if err != nil {
			return nil, fmt.Errorf("detector %s: invalid pos %q", xl.ID, xl.Pos)
		}
		freq, err := parseSeconds(xl.Freq)
		if err != nil {
			return nil, fmt.Errorf("detector %s: invalid freq %q", xl.ID, xl.Freq)
		}
		out = append(out, InductionLoop{ID: xl.ID, Lane: xl.Lane, Pos: pos, Freq: freq, File: xl.File})
	}
	return out, nil
}
