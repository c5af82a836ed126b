package metrics

import (
	"bytes"
	"encoding/json"
	"time"
)

// Source of the data returned for a row read.
const (
	SourceCache   = "cache"
	SourceRaw     = "bip"
	SourceLibrary = "gdal"
)

type RowReadInfo struct {
	ReqTime    string        `json:"req_time"`
	Duration   time.Duration `json:"duration"`
	Row        int           `json:"row"`
	NumImages  int           `json:"num_images"`
	NumBands   int           `json:"num_bands"`
	Source     string        `json:"source"`
	CacheHit   bool          `json:"cache_hit"`
	CacheWrite bool          `json:"cache_write"`
	Rebound    bool          `json:"rebound"`
	BytesRead  int64         `json:"bytes_read"`
	Error      string        `json:"error,omitempty"`
}

type MetricsCollector struct {
	Info   *RowReadInfo
	start  time.Time
	logger Logger
}

// NewMetricsCollector starts timing a request. A nil logger discards the
// record.
func NewMetricsCollector(logger Logger) *MetricsCollector {
	now := time.Now()
	return &MetricsCollector{
		Info:   &RowReadInfo{ReqTime: now.Format(time.RFC3339)},
		start:  now,
		logger: logger,
	}
}

func (m *MetricsCollector) Log() {
	m.Info.Duration = time.Since(m.start)
	if m.logger != nil {
		m.logger.Log(m.Info)
	}
}

func (i *RowReadInfo) ToJSON() (string, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(i); err != nil {
		return "", err
	}
	return buf.String(), nil
}
