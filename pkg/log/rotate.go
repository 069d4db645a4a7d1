package log

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RotateScheme is the zap sink scheme served by lumberjack.
const RotateScheme = "rotate"

var registerOnce sync.Once

// rotateSink adapts lumberjack to zap.Sink.
type rotateSink struct {
	*lumberjack.Logger
}

func (rotateSink) Sync() error { return nil }

func registerRotateSink() {
	registerOnce.Do(func() {
		_ = zap.RegisterSink(RotateScheme, func(u *url.URL) (zap.Sink, error) {
			q := u.Query()
			return rotateSink{Logger: &lumberjack.Logger{
				Filename:   u.Path,
				MaxSize:    atoi(q.Get("max-size")),
				MaxBackups: atoi(q.Get("max-backups")),
				MaxAge:     atoi(q.Get("max-age")),
				Compress:   q.Get("compress") == "true",
			}}, nil
		})
	})
}

// rotatePaths rewrites plain file outputs into rotate:// sinks when rotation is enabled.
func rotatePaths(opts *Options, paths []string) []string {
	if opts.MaxSizeMB <= 0 {
		return paths
	}

	registerRotateSink()

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "stdout" || p == "stderr" {
			out = append(out, p)
			continue
		}
		if u, err := url.Parse(p); err == nil && u.Scheme != "" && u.Scheme != "file" {
			out = append(out, p)
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		out = append(out, fmt.Sprintf("%s://%s?max-size=%d&max-backups=%d&max-age=%d",
			RotateScheme, filepath.ToSlash(p), opts.MaxSizeMB, opts.MaxBackups, opts.MaxAgeDays))
	}

	return out
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
