package main

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nf/intcode/intcode"
	"github.com/nf/intcode/snapshot"
)

func devMode(p *program, ascii, gui, debug bool) error {
	file := filepath.Clean(p.file)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Watch(filepath.Dir(file)); err != nil {
		return err
	}

	var (
		out   io.Writer = os.Stdout
		input <-chan string
		state StateFunc = logState
		d     *debugger
	)
	if debug {
		store, err := snapshot.Open(p.state)
		if err != nil {
			return err
		}
		defer store.Close()
		d = newDebugger(p, store)
		out, state = d.log, d.StateFunc

		level := zap.InfoLevel
		if p.trace {
			level = zap.DebugLevel
		}
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(d.log),
			level,
		)
		defer zap.ReplaceGlobals(zap.New(core))()
	} else {
		input = readLines(os.Stdin)
	}

	runner := NewRunner(ascii, true, out, input, state)
	if d != nil {
		d.r = runner
		log.SetPrefix("")
		log.SetOutput(d.log)
		go func() {
			if err := d.Run(); err != nil {
				log.Fatalf("debug: %v", err)
			}
			log.SetOutput(os.Stderr)
			log.SetPrefix("intcode: ")
			runner.Stop()
		}()
	}

	mCh := make(chan *intcode.Machine)
	go func() {
		started := false
		load := time.After(1 * time.Millisecond)
		for {
			select {
			case <-load:
				log.Printf("dev: load %s", filepath.Base(file))
				m, err := p.load()
				if err != nil {
					log.Printf("dev: %v", err)
					break
				}
				if !started {
					log.Printf("dev: start")
					mCh <- m
					started = true
				} else {
					log.Printf("dev: reset")
					runner.Swap(m)
				}
			case ev := <-watcher.Event:
				if ev.Name == file && !ev.IsAttrib() {
					load = time.After(100 * time.Millisecond)
				}
			case err := <-watcher.Error:
				log.Printf("dev: watcher: %v", err)
			}
		}
	}()

	var m *intcode.Machine
	select {
	case m = <-mCh:
	case <-runner.exit:
		return nil
	}
	if !gui {
		return runner.Run(m)
	}
	errc := make(chan error, 1)
	go func() { errc <- runner.Run(m) }()
	if err := newMemoryMap(runner, file).Run(runner.done); err != nil {
		log.Printf("gui: %v", err)
	}
	runner.Stop()
	return <-errc
}

// logState reports the end of each run of the program when the debugger
// is not in use.
func logState(m *intcode.Machine, k StateKind, err error) {
	switch k {
	case HaltState:
		log.Printf("dev: halted after %d steps", m.Steps())
	case FaultState:
		log.Printf("dev: %v", err)
	}
}
