package main

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"golang.org/x/exp/slices"

	"github.com/nf/intcode/intcode"
	"github.com/nf/intcode/snapshot"
)

var debugCommands = []string{
	"step", "cont", "pause", "break", "watch", "input", "ascii",
	"save", "load", "delete", "states", "reset", "help", "exit",
}

const debugHelp = `commands:
  s, step [n]     execute n instructions (default 1)
  c, cont         continue
  p, pause        stop
  b, break [addr] set the breakpoint, or clear it
  w, watch [addr] watch a memory cell, or clear all watches
  i, input vals   queue comma-separated values
  a, ascii text   queue a line of text
  save name       save the machine state
  load name       restore a saved state
  delete name     delete a saved state
  states          list saved states
  reset           reload the program
  exit
addresses are decimal, ip, rb, or rb+n`

type debugger struct {
	r     *Runner
	prog  *program
	store *snapshot.Store

	log   *tview.TextView
	watch *tview.TextView
	state *tview.TextView
	input *tview.InputField
	cols  *tview.Flex
	rows  *tview.Flex
	app   *tview.Application

	mu        sync.Mutex
	brk       int64
	watches   []int64
	lastQuiet time.Time
}

func newDebugger(p *program, store *snapshot.Store) *debugger {
	d := &debugger{
		prog:  p,
		store: store,
		brk:   -1,
		log: tview.NewTextView().
			SetMaxLines(1000),
		watch: tview.NewTextView().
			SetWrap(false).
			SetTextAlign(tview.AlignRight),
		state: tview.NewTextView().
			SetWrap(false),
		input: tview.NewInputField(),
		cols:  tview.NewFlex(),
		rows: tview.NewFlex().
			SetDirection(tview.FlexRow),
		app: tview.NewApplication(),
	}
	d.log.SetChangedFunc(func() { d.app.Draw() })
	d.watch.SetBackgroundColor(tcell.ColorDarkBlue)
	d.state.SetBackgroundColor(tcell.ColorDarkGrey)
	d.cols.
		AddItem(d.watch, 0, 1, false).
		AddItem(d.log, 0, 2, false)
	d.rows.
		AddItem(d.cols, 0, 1, false).
		AddItem(d.state, 3, 0, false).
		AddItem(d.input, 1, 0, true)
	d.app.SetRoot(d.rows, true)

	d.input.SetAutocompleteFunc(d.complete)
	d.input.SetAutocompletedFunc(func(t string, index, src int) bool {
		if src != tview.AutocompletedNavigate {
			d.input.SetText(t)
		}
		return src == tview.AutocompletedEnter || src == tview.AutocompletedClick
	})
	d.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		cmd := d.input.GetText()
		if cmd == "" {
			return
		}
		d.input.SetText("")
		if cmd == "exit" {
			d.app.Stop()
			return
		}
		// Commands wait for the runner, which may be waiting for
		// the screen to be updated.
		go d.exec(cmd)
	})
	return d
}

func (d *debugger) Run() error { return d.app.Run() }

func (d *debugger) complete(t string) (entries []string) {
	cmd, arg, ok := strings.Cut(t, " ")
	if !ok {
		if t == "" {
			return nil
		}
		for _, c := range debugCommands {
			if strings.HasPrefix(c, t) {
				entries = append(entries, c)
			}
		}
		return
	}
	switch cmd {
	case "load", "delete":
		infos, err := d.store.List()
		if err != nil {
			return nil
		}
		for _, info := range infos {
			if strings.HasPrefix(info.Name, arg) {
				entries = append(entries, cmd+" "+info.Name)
			}
		}
	}
	return
}

func (d *debugger) exec(line string) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "s", "step":
		n := int64(1)
		if arg != "" {
			v, err := strconv.ParseInt(arg, 10, 64)
			if err != nil || v < 1 {
				log.Printf("invalid step count %q", arg)
				return
			}
			n = v
		}
		d.r.Step(n)
	case "c", "cont":
		d.r.Continue()
	case "p", "pause":
		d.r.Pause()
	case "b", "break":
		if arg == "" {
			d.setBreak(-1)
			log.Print("cleared break")
			return
		}
		addr, ok := d.resolve(arg)
		if !ok {
			return
		}
		d.setBreak(addr)
		log.Printf("set break %d", addr)
	case "w", "watch":
		if arg == "" {
			d.mu.Lock()
			d.watches = nil
			d.mu.Unlock()
			log.Print("cleared watches")
			d.refresh()
			return
		}
		addr, ok := d.resolve(arg)
		if !ok {
			return
		}
		d.mu.Lock()
		if !slices.Contains(d.watches, addr) {
			d.watches = append(d.watches, addr)
			slices.Sort(d.watches)
		}
		d.mu.Unlock()
		log.Printf("watching %d", addr)
		d.refresh()
	case "i", "input", "a", "ascii":
		if err := d.r.Input(arg, cmd[0] == 'a'); err != nil {
			log.Print(err)
		}
	case "save":
		if arg == "" {
			log.Print("save: missing name")
			return
		}
		var (
			info snapshot.Info
			err  error
		)
		d.r.Do(func(m *intcode.Machine) { info, err = d.store.Save(arg, m) })
		if err != nil {
			log.Printf("save: %v", err)
			return
		}
		log.Printf("saved %v", info)
	case "load":
		m, err := d.store.Load(arg)
		if err != nil {
			log.Printf("load: %v", err)
			return
		}
		d.r.Swap(m)
		log.Printf("loaded %s", arg)
	case "delete":
		if err := d.store.Delete(arg); err != nil {
			log.Printf("delete: %v", err)
			return
		}
		log.Printf("deleted %s", arg)
	case "states":
		infos, err := d.store.List()
		if err != nil {
			log.Printf("states: %v", err)
			return
		}
		if len(infos) == 0 {
			log.Print("no saved states")
		}
		for _, info := range infos {
			log.Print(info)
		}
	case "reset":
		m, err := d.prog.load()
		if err != nil {
			log.Printf("reset: %v", err)
			return
		}
		d.r.Swap(m)
		log.Print("reset")
	case "h", "help":
		log.Print(debugHelp)
	default:
		log.Printf("unknown command %q (try help)", cmd)
	}
}

func (d *debugger) setBreak(addr int64) {
	d.mu.Lock()
	d.brk = addr
	d.mu.Unlock()
	d.r.Break(addr)
}

// refresh redraws the watch pane.
func (d *debugger) refresh() {
	var watch string
	d.r.Do(func(m *intcode.Machine) { watch = d.watchContent(m) })
	d.app.QueueUpdateDraw(func() { d.watch.SetText(watch) })
}

func (d *debugger) resolve(arg string) (addr int64, ok bool) {
	var err error
	d.r.Do(func(m *intcode.Machine) { addr, err = resolveAddr(m, arg) })
	if err != nil {
		log.Print(err)
		return 0, false
	}
	return addr, true
}

// resolveAddr evaluates an address expression: a decimal address, ip, rb,
// or rb followed by a signed offset.
func resolveAddr(m *intcode.Machine, s string) (int64, error) {
	var (
		base int64
		off  = s
	)
	switch {
	case s == "ip":
		return m.IP, nil
	case strings.HasPrefix(s, "rb"):
		base, off = m.Base, strings.TrimPrefix(s, "rb")
		if off == "" {
			off = "0"
		}
	}
	v, err := strconv.ParseInt(off, 10, 64)
	if err != nil || base+v < 0 {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return base + v, nil
}

func (d *debugger) StateFunc(m *intcode.Machine, k StateKind, err error) {
	if k == QuietState {
		d.mu.Lock()
		skip := time.Since(d.lastQuiet) < 50*time.Millisecond
		if !skip {
			d.lastQuiet = time.Now()
		}
		d.mu.Unlock()
		if skip {
			return
		}
	}
	var (
		watch = d.watchContent(m)
		state = stateMsg(m, k, err)
	)
	d.app.QueueUpdateDraw(func() {
		switch k {
		case ClearState, QuietState:
			d.state.SetTextColor(tcell.ColorBlack)
			d.state.SetBackgroundColor(tcell.ColorDarkGrey)
		case BreakState, StepState, StopState:
			d.state.SetTextColor(tcell.ColorYellow)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case PauseState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case HaltState, FaultState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkRed)
		}
		d.watch.SetText(watch)
		d.state.SetText(state)
	})
}

func stateMsg(m *intcode.Machine, k StateKind, err error) string {
	kind := "       "
	switch k {
	case StepState:
		kind = "[step] "
	case BreakState:
		kind = "[break]"
	case StopState:
		kind = "[stop] "
	case PauseState:
		kind = "[input]"
	case HaltState:
		kind = "[HALT!]"
	case FaultState:
		kind = "[FAULT]"
	}
	text, _ := intcode.Disassemble(m.Mem, m.IP)
	msg := fmt.Sprintf("%6d %-28s %s rb=%d steps=%d\nin: %v\n",
		m.IP, text, kind, m.Base, m.Steps(), m.In)
	if err != nil {
		msg += err.Error() + "\n"
	}
	return msg
}

func (d *debugger) watchContent(m *intcode.Machine) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	if d.brk >= 0 {
		fmt.Fprintf(&b, "[%d] brk!\n", d.brk)
	}
	for _, addr := range d.watches {
		fmt.Fprintf(&b, "[%d] %d\n", addr, m.Mem.At(addr))
	}
	return b.String()
}
