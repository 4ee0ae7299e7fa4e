// Command intcode executes Intcode programs.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nf/intcode/intcode"
	"github.com/nf/intcode/pipeline"
	"github.com/nf/intcode/snapshot"
)

func main() {
	log.SetPrefix("intcode: ")
	log.SetFlags(0)

	var (
		inFlag    = flag.String("in", "", "comma-separated `values` queued on the input before running")
		asciiFlag = flag.Bool("ascii", false, "exchange lines of text with the program")
		guiFlag   = flag.Bool("gui", false, "show the memory map window")
		devFlag   = flag.Bool("dev", false, "enable developer mode (restart the program when its file changes)")
		debugFlag = flag.Bool("debug", false, "enable debugger (implies -dev)")
		stateFlag = flag.String("state", "", "save state database `file` (default program.state)")
		fromFlag  = flag.String("resume", "", "start from the save state `name` instead of the program")
		traceFlag = flag.Bool("trace", false, "log every executed instruction")

		phasesFlag   = flag.String("phases", "", "run a chain of machines, one per phase `setting`, and print the last output")
		feedbackFlag = flag.Bool("feedback", false, "with -phases, feed the output of the last machine back to the first")

		cpuProfileFlag = flag.String("cpu_profile", "", "write CPU profile to `file`")

		sets  cellFlag
		peeks addrFlag
	)
	flag.Var(&sets, "set", "patch memory before running, as `addr=value` (repeatable)")
	flag.Var(&peeks, "peek", "print the memory cell at `addr` after the program halts (repeatable)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-ascii] [-gui] [-in values] <program>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s <-dev | -debug> <program>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s -phases settings [-feedback] <program>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
	}

	logger := zap.NewNop()
	if *traceFlag {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatalf("creating logger: %v", err)
		}
		logger = l
		defer logger.Sync()
	}
	defer zap.ReplaceGlobals(logger)()

	p := &program{
		file:  flag.Arg(0),
		sets:  sets,
		input: *inFlag,
		state: *stateFlag,
		trace: *traceFlag,
	}
	if p.state == "" {
		p.state = p.file + ".state"
	}

	if *phasesFlag != "" {
		if err := runPipeline(p, *phasesFlag, *feedbackFlag); err != nil {
			log.Fatal(err)
		}
		return
	}

	if *devFlag || *debugFlag {
		if err := devMode(p, *asciiFlag, *guiFlag, *debugFlag); err != nil {
			log.Fatal(err)
		}
		return
	}

	var cpuProfile io.Closer
	if prof := *cpuProfileFlag; prof != "" {
		f, err := os.Create(prof)
		if err != nil {
			log.Fatalf("creating CPU profile file: %v", err)
		}
		pprof.StartCPUProfile(f)
		cpuProfile = f
	}

	err := run(p, *fromFlag, *asciiFlag, *guiFlag, peeks)

	if f := cpuProfile; f != nil {
		pprof.StopCPUProfile()
		f.Close()
	}

	if err != nil {
		log.Fatal(err)
	}
}

func run(p *program, resume string, ascii, gui bool, peeks []int64) error {
	var (
		m   *intcode.Machine
		err error
	)
	if resume != "" {
		m, err = p.resume(resume)
	} else {
		m, err = p.load()
	}
	if err != nil {
		return err
	}

	r := NewRunner(ascii, false, os.Stdout, readLines(os.Stdin), nil)
	if gui {
		// The window must be driven from the main goroutine.
		errc := make(chan error, 1)
		go func() { errc <- r.Run(m) }()
		if err := newMemoryMap(r, p.file).Run(nil); err != nil {
			return fmt.Errorf("gui: %v", err)
		}
		r.Stop()
		err = <-errc
	} else {
		err = r.Run(m)
	}
	if err != nil {
		return err
	}
	if !m.Halted() {
		return nil
	}
	for _, addr := range peeks {
		fmt.Printf("%d: %d\n", addr, m.Mem.At(addr))
	}
	return nil
}

func runPipeline(p *program, phases string, feedback bool) error {
	settings, err := parseValues(phases)
	if err != nil {
		return err
	}
	signal, err := parseValues(p.input)
	if err != nil {
		return err
	}
	if len(signal) == 0 {
		signal = []int64{0}
	}
	m, err := p.parse()
	if err != nil {
		return err
	}
	machines := make([]*intcode.Machine, len(settings))
	for i, s := range settings {
		machines[i] = m.Clone()
		machines[i].Send(s)
	}
	var opts []pipeline.Option
	if feedback {
		opts = append(opts, pipeline.Feedback())
	}
	out, err := pipeline.New(machines, opts...).Run(signal...)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// program describes how to start a machine: the program file, the memory
// patches and the initial input.
type program struct {
	file  string
	sets  []cell
	input string
	state string // save state database
	trace bool
}

// parse reads the program file and applies the memory patches.
func (p *program) parse(opts ...intcode.Option) (*intcode.Machine, error) {
	f, err := os.Open(p.file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := intcode.Parse(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.file, err)
	}
	for _, c := range p.sets {
		m.Mem.Write(c.addr, c.val)
	}
	return m, nil
}

// load is parse followed by queueing the initial input.
func (p *program) load(opts ...intcode.Option) (*intcode.Machine, error) {
	vals, err := parseValues(p.input)
	if err != nil {
		return nil, err
	}
	m, err := p.parse(opts...)
	if err != nil {
		return nil, err
	}
	m.Send(vals...)
	return m, nil
}

func (p *program) resume(name string, opts ...intcode.Option) (*intcode.Machine, error) {
	s, err := snapshot.Open(p.state)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Load(name, opts...)
}

type cell struct{ addr, val int64 }

// cellFlag is a repeatable flag of addr=value pairs.
type cellFlag []cell

func (f *cellFlag) String() string {
	var b strings.Builder
	for i, c := range *f {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d=%d", c.addr, c.val)
	}
	return b.String()
}

func (f *cellFlag) Set(s string) error {
	a, v, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("want addr=value, got %q", s)
	}
	addr, err := parseAddr(a)
	if err != nil {
		return err
	}
	val, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid value %q", v)
	}
	*f = append(*f, cell{addr, val})
	return nil
}

// addrFlag is a repeatable flag of memory addresses.
type addrFlag []int64

func (f *addrFlag) String() string { return fmt.Sprint([]int64(*f)) }

func (f *addrFlag) Set(s string) error {
	addr, err := parseAddr(s)
	if err != nil {
		return err
	}
	*f = append(*f, addr)
	return nil
}

func parseAddr(s string) (int64, error) {
	addr, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || addr < 0 || addr > intcode.MaxAddress {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return addr, nil
}
