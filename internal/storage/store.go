package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Store persists sandbox runs, one directory per run with a metadata.json
// and a trace.csv of the watched body's motion.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string    `json:"id"`
	Scene     string    `json:"scene"`
	Watch     string    `json:"watch"`
	Timestamp time.Time `json:"timestamp"`
	TickRate  float64   `json:"tick_rate"`
	Steps     int       `json:"steps"`
	Bodies    int       `json:"bodies"`
}

// TracePoint is one sampled step of the watched body.
type TracePoint struct {
	Time     float64
	Center   mgl32.Vec3
	Velocity mgl32.Vec3
}

func (s *Store) Save(meta RunMetadata, trace []TracePoint) (string, error) {
	runID := fmt.Sprintf("%s_%d", meta.Scene, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now()
	meta.Steps = len(trace)

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvPath := filepath.Join(runDir, "trace.csv")
	csvFile, err := os.Create(csvPath)
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	header := []string{"time", "x", "y", "z", "vx", "vy", "vz"}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, p := range trace {
		row := []string{strconv.FormatFloat(p.Time, 'f', 6, 64)}
		for i := 0; i < 3; i++ {
			row = append(row, strconv.FormatFloat(float64(p.Center[i]), 'f', 6, 32))
		}
		for i := 0; i < 3; i++ {
			row = append(row, strconv.FormatFloat(float64(p.Velocity[i]), 'f', 6, 32))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		metaPath := filepath.Join(s.baseDir, entry.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadTrace(runID string) ([]TracePoint, error) {
	csvPath := filepath.Join(s.baseDir, runID, "trace.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return []TracePoint{}, nil
	}

	trace := make([]TracePoint, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) < 7 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}

		var p TracePoint
		p.Time = t
		ok := true
		for j := 0; j < 3; j++ {
			v, err := strconv.ParseFloat(record[1+j], 32)
			if err != nil {
				ok = false
				break
			}
			p.Center[j] = float32(v)
		}
		for j := 0; ok && j < 3; j++ {
			v, err := strconv.ParseFloat(record[4+j], 32)
			if err != nil {
				ok = false
				break
			}
			p.Velocity[j] = float32(v)
		}
		if !ok {
			continue
		}
		trace = append(trace, p)
	}

	return trace, nil
}
