package universe

import "context"

type Universe interface {
	Status() Status
	Options() Options
	Snapshot() Snapshot
	StateCh() chan Status
	Running() bool
	AddTemplate(tmpl Template)
	SettleTemplate(name string) error
	Settle(coords []Coord)
	AddCell(c Coord) bool
	InverseCell(c Coord)
	RegisterViewer(v Viewer)
	Run(ctx context.Context) error
	Start(ctx context.Context)
	Stop()
	Step(ctx context.Context) error
	Clear()
	Cleanup() int
}

var _ Universe = (*Engine)(nil)
