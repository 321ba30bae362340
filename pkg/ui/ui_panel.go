package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Widget is anything the panel can stack vertically.
type Widget interface {
	HandlePointer(p Pointer)
	Draw(screen *ebiten.Image)
	Height() float64
	SetY(y float64)
}

const (
	titleHeight   = 30.0
	sectionHeight = 25.0
	labelOffset   = 15.0
	scrollStep    = 20.0
)

// PanelSection groups the widgets added between AddSection and EndSection.
type PanelSection struct {
	Title      string
	StartIndex int // first widget index
	EndIndex   int // exclusive
}

// UIPanel manages a collection of UI widgets in a scrollable panel
type UIPanel struct {
	X, Y          float64
	Width, Height float64
	Title         string
	Widgets       []Widget
	Labels        []string // drawn above the widget, empty for buttons
	ScrollOffset  float64
	Hidden        bool

	BGColor     color.RGBA
	BorderColor color.RGBA

	sections []PanelSection
}

// NewUIPanel creates a new UI panel
func NewUIPanel(x, y, width, height float64) *UIPanel {
	return &UIPanel{
		X:           x,
		Y:           y,
		Width:       width,
		Height:      height,
		Title:       "Configuration",
		BGColor:     color.RGBA{R: 40, G: 40, B: 45, A: 230},
		BorderColor: color.RGBA{R: 100, G: 100, B: 110, A: 255},
	}
}

// AddSection opens a section. Widgets added until EndSection belong to it.
func (p *UIPanel) AddSection(title string) {
	p.sections = append(p.sections, PanelSection{
		Title:      title,
		StartIndex: len(p.Widgets),
		EndIndex:   len(p.Widgets),
	})
}

// EndSection closes the current section
func (p *UIPanel) EndSection() {
	if len(p.sections) > 0 {
		p.sections[len(p.sections)-1].EndIndex = len(p.Widgets)
	}
}

func (p *UIPanel) add(label string, w Widget) {
	p.Widgets = append(p.Widgets, w)
	p.Labels = append(p.Labels, label)
	p.EndSection()
}

// AddSlider adds a slider widget to the panel
func (p *UIPanel) AddSlider(label string, min, max, value float64) *Slider {
	s := NewSlider(p.X+10, p.Y+p.contentHeight(), p.Width-20, label, min, max, value)
	p.add(label, s)
	return s
}

// AddCheckbox adds a checkbox widget to the panel
func (p *UIPanel) AddCheckbox(label string, value bool) *Checkbox {
	c := NewCheckbox(p.X+10, p.Y+p.contentHeight(), label, value)
	p.add(label, c)
	return c
}

// AddButton adds a full width button to the panel
func (p *UIPanel) AddButton(label string, onClick func()) *Button {
	b := NewButton(p.X+10, p.Y+p.contentHeight(), p.Width-20, 22, label, onClick)
	p.add("", b)
	return b
}

// contentHeight is the unscrolled height of everything added so far.
func (p *UIPanel) contentHeight() float64 {
	h := titleHeight + float64(len(p.sections))*sectionHeight
	for _, w := range p.Widgets {
		h += w.Height()
	}
	return h
}

// Contains reports whether (x, y) falls on the panel, so that clicks there
// are not forwarded to the world underneath.
func (p *UIPanel) Contains(x, y float64) bool {
	return !p.Hidden && Pointer{X: x, Y: y}.In(p.X, p.Y, p.Width, p.Height)
}

// Update reads mouse input once and hands it to every widget.
func (p *UIPanel) Update() {
	_, dy := ebiten.Wheel()
	p.HandleInput(CurrentPointer(), dy)
}

// HandleInput scrolls by wheel and forwards the pointer to the widgets.
func (p *UIPanel) HandleInput(ptr Pointer, wheel float64) {
	if p.Hidden {
		return
	}
	if wheel != 0 && p.Contains(ptr.X, ptr.Y) {
		p.ScrollOffset -= wheel * scrollStep

		maxScroll := p.contentHeight() - p.Height + 40
		if maxScroll < 0 {
			maxScroll = 0
		}
		if p.ScrollOffset < 0 {
			p.ScrollOffset = 0
		}
		if p.ScrollOffset > maxScroll {
			p.ScrollOffset = maxScroll
		}
	}

	p.layout()
	for i, w := range p.Widgets {
		// a widget scrolled out of the panel must not catch clicks
		if !p.visible(i) {
			w.HandlePointer(Pointer{X: ptr.X, Y: ptr.Y})
			continue
		}
		w.HandlePointer(ptr)
	}
}

// layout places every widget at its scrolled position.
func (p *UIPanel) layout() {
	for i, w := range p.Widgets {
		w.SetY(p.widgetTop(i) + labelOffset)
	}
}

// widgetTop is where the label of widget i starts, section headers included.
func (p *UIPanel) widgetTop(i int) float64 {
	y := p.Y + titleHeight - p.ScrollOffset
	for _, s := range p.sections {
		if s.StartIndex <= i {
			y += sectionHeight
		}
	}
	for _, w := range p.Widgets[:i] {
		y += w.Height()
	}
	return y
}

func (p *UIPanel) visible(i int) bool {
	top := p.widgetTop(i)
	return top >= p.Y+titleHeight-labelOffset && top+p.Widgets[i].Height() <= p.Y+p.Height+labelOffset
}

// Draw renders the panel and all widgets
func (p *UIPanel) Draw(screen *ebiten.Image) {
	if p.Hidden {
		return
	}
	vector.FillRect(screen,
		float32(p.X), float32(p.Y),
		float32(p.Width), float32(p.Height),
		p.BGColor, true)
	vector.StrokeRect(screen,
		float32(p.X), float32(p.Y),
		float32(p.Width), float32(p.Height),
		2, p.BorderColor, true)
	ebitenutil.DebugPrintAt(screen, p.Title, int(p.X+10), int(p.Y+5))

	p.layout()
	for _, s := range p.sections {
		top := p.widgetTop(s.StartIndex) - sectionHeight
		if top >= p.Y+titleHeight-5 && top <= p.Y+p.Height-sectionHeight {
			vector.FillRect(screen,
				float32(p.X+5), float32(top),
				float32(p.Width-10), 20,
				color.RGBA{R: 60, G: 60, B: 70, A: 255}, true)
			ebitenutil.DebugPrintAt(screen, s.Title, int(p.X+10), int(top+5))
		}
	}
	for i, w := range p.Widgets {
		if !p.visible(i) {
			continue
		}
		if p.Labels[i] != "" {
			ebitenutil.DebugPrintAt(screen, p.Labels[i], int(p.X+10), int(p.widgetTop(i)))
		}
		w.Draw(screen)
	}
}
