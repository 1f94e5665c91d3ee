package history

import (
	"time"

	"github.com/0x6d61/rawget/internal/transport"
)

// NewRecord builds a Record from one fetch. resp may be nil when fetchErr
// is set.
func NewRecord(req *transport.Request, resp *transport.Response, fetchErr error, at time.Time) *Record {
	req = req.WithDefaults()
	rec := &Record{
		Target:    req.Target(),
		Host:      req.Host,
		Port:      req.Port,
		Path:      req.Path,
		FetchedAt: at.UTC(),
	}
	if resp != nil {
		rec.StatusCode = resp.StatusCode
		rec.Headers = resp.Headers
		rec.BodySize = int64(len(resp.Body))
		rec.DurationMS = resp.Duration.Milliseconds()
	}
	if fetchErr != nil {
		rec.Error = fetchErr.Error()
	}
	return rec
}
