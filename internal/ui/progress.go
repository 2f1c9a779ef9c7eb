package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// ProgressMessages cycle while a reply is being generated.
var ProgressMessages = []string{
	"Analyzing your vision...",
	"Drafting project structure...",
	"Generating configuration files...",
	"Building component tree...",
	"Styling with CSS...",
	"Adding JavaScript interactivity...",
	"Finalizing the project files...",
}

// ProgressInterval is how long each progress message is shown.
const ProgressInterval = 2500 * time.Millisecond

// Progress is a spinner whose message rotates through ProgressMessages and
// also names the file currently being written.
type Progress struct {
	sp       *Spinner
	interval time.Duration

	mu      sync.Mutex
	index   int
	file    string
	size    int
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewProgress creates a progress indicator that writes to w.
func NewProgress(w io.Writer) *Progress {
	return &Progress{
		sp:       newSpinner(w, ProgressMessages[0]),
		interval: ProgressInterval,
	}
}

// Start shows the first message and begins rotating.
func (p *Progress) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.index = 0
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	p.sp.SetMessage(p.messageLocked())
	stop, done := p.stop, p.done
	p.mu.Unlock()

	p.sp.Start()
	go p.rotate(stop, done)
}

func (p *Progress) rotate(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.mu.Lock()
			p.index = (p.index + 1) % len(ProgressMessages)
			p.sp.SetMessage(p.messageLocked())
			p.mu.Unlock()
		case <-stop:
			return
		}
	}
}

// SetFile names the file being streamed and its size so far. An empty
// path clears it.
func (p *Progress) SetFile(path string, size int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.file, p.size = path, size
	p.sp.SetMessage(p.messageLocked())
}

// Message is the text currently shown.
func (p *Progress) Message() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.messageLocked()
}

func (p *Progress) messageLocked() string {
	msg := ProgressMessages[p.index]
	if p.file != "" {
		msg += fmt.Sprintf("  (writing %s, %s)", p.file, humanize.Bytes(uint64(p.size)))
	}
	return msg
}

// Stop halts the spinner and the rotation.
func (p *Progress) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	done := p.done
	p.mu.Unlock()

	<-done
	p.sp.Stop()
}

// Pause stops the spinner around fn so fn can print without the spinner
// line getting in the way.
func (p *Progress) Pause(fn func()) {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()

	if running {
		p.sp.Stop()
	}
	fn()
	if running {
		p.sp.Start()
	}
}
