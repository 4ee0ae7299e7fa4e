package main

import (
	"image"
	"image/draw"
	"log"
	"time"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/nf/intcode/intcode"
)

// memoryMap is a window showing the memory of the machine of a Runner.
type memoryMap struct {
	r     *Runner
	title string

	view memoryView
	buf  screen.Buffer
	tex  screen.Texture
}

func newMemoryMap(r *Runner, title string) *memoryMap {
	return &memoryMap{r: r, title: title}
}

// Run shows the window until it is closed or exit is closed.
// It must be called from the main goroutine.
func (g *memoryMap) Run(exit <-chan bool) (err error) {
	driver.Main(func(s screen.Screen) {
		var w screen.Window
		w, err = s.NewWindow(&screen.NewWindowOptions{
			Title:  "intcode: " + g.title,
			Width:  mapSize.X * 2,
			Height: mapSize.Y * 2,
		})
		if err != nil {
			return
		}
		defer w.Release()

		if g.buf, err = s.NewBuffer(mapSize); err != nil {
			return
		}
		defer g.buf.Release()
		if g.tex, err = s.NewTexture(mapSize); err != nil {
			return
		}
		defer g.tex.Release()

		type update struct{}
		quit := make(chan bool)
		defer close(quit)
		go func() {
			t := time.NewTicker(time.Second / 30)
			defer t.Stop()
			for {
				select {
				case <-t.C:
					w.Send(update{})
				case <-quit:
					return
				}
			}
		}()

		var sz size.Event
		for {
			e := w.NextEvent()

			select {
			case <-exit:
				return
			default:
			}

			switch e := e.(type) {
			case size.Event:
				sz = e
				if sz.WidthPx+sz.HeightPx == 0 {
					return
				}

			case lifecycle.Event:
				if e.To == lifecycle.StageDead {
					return
				}

			case key.Event:
				if e.Direction == key.DirPress && (e.Code == key.CodeEscape || e.Rune == 'q') {
					return
				}

			case paint.Event:
				g.publish(w, sz)

			case update:
				if g.update() {
					g.publish(w, sz)
				}

			case error:
				log.Print(e)
			}
		}
	})
	return err
}

// update copies the machine state and redraws the buffer if it changed.
func (g *memoryMap) update() (changed bool) {
	g.r.Do(func(m *intcode.Machine) { changed = g.view.capture(m) })
	if changed {
		g.view.draw(g.buf.RGBA())
		g.tex.Upload(image.Point{}, g.buf, g.buf.Bounds())
	}
	return
}

func (g *memoryMap) publish(w screen.Window, sz size.Event) {
	if !g.view.valid {
		return
	}
	w.Scale(sz.Bounds(), g.tex, g.tex.Bounds(), draw.Src, nil)
	w.Publish()
}
