// Package logging 提供带时间戳的 charmbracelet 日志器，并通过 context 传递
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// New 创建日志器，时间戳格式为 "HH:MM:SS.ms"
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// Default 输出到 stderr，verbose 时打开 debug
func Default(verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return New(os.Stderr, level)
}

// Slog 把 charm 日志器包装成标准库 slog，供 gRPC 拦截器使用
func Slog(l *log.Logger) *slog.Logger {
	return slog.New(l)
}

type ctxKey int

const loggerKey ctxKey = 0

func WithLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext 取出日志器；没有时返回全局默认日志器
func FromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// Progress 记录一个操作的开始时间，结束时输出耗时
type Progress struct {
	logger *log.Logger
	start  time.Time
}

func NewProgress(l *log.Logger) *Progress {
	return &Progress{logger: l, start: time.Now()}
}

func (p *Progress) Done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
