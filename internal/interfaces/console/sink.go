package console

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"cointrack/internal/application/port"
	"cointrack/internal/domain/model"
)

const tsLayout = "2006-01-02 15:04:05"

type Sink struct {
	mu  sync.Mutex
	out io.Writer
}

func NewSink() port.Sink { return NewSinkTo(os.Stdout) }

func NewSinkTo(w io.Writer) *Sink { return &Sink{out: w} }

func (s *Sink) WriteLive(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprint(s.out, line) // no newline
	return err
}

// A 方案：打印快照行后，留一个空行占位；不立刻重画 live，等下一次变化刷新
func (s *Sink) WriteSnapshot(ts time.Time, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.out, "\n%s %s\n\n", ts.Format(tsLayout), line)
	return err
}

// 告警与快照相同：另起一行输出，live 行在下一次刷新时重画
func (s *Sink) WriteAlert(a model.TriggeredAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.out, "\n%s ALERT %s %s %s: price %s\n",
		a.Timestamp.Local().Format(tsLayout), a.Asset, a.Direction, a.Threshold, a.Price)
	return err
}

func (s *Sink) NewLine() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprint(s.out, "\n")
	return err
}
