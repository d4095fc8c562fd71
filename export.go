package liftline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// ExportFormat is the file format of exported wake shapes.
type ExportFormat uint8

const (
	// VTKFormat is legacy VTK polydata, readable by ParaView.
	VTKFormat ExportFormat = iota
	// OBJFormat is Wavefront OBJ. Strengths are not written.
	OBJFormat
)

func (f ExportFormat) String() string {
	if f == OBJFormat {
		return "obj"
	}
	return "vtk"
}

// ParseExportFormat returns the format named s.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch s {
	case "", "vtk":
		return VTKFormat, nil
	case "obj":
		return OBJFormat, nil
	}
	return VTKFormat, fmt.Errorf("%w: export format `%s`", ErrInvalidSetting, s)
}

// ExportConfig configures the exporting of the wake shape.
type ExportConfig struct {
	Filename string
	Format   ExportFormat
	// Directory defaults to the configured output path.
	Directory string
	// Every writes one shape every so many steps; zero disables the export.
	Every int
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return c.Every <= 0 || c.Filename == ""
}

func (c ExportConfig) path(step int) string {
	dir := c.Directory
	if dir == "" {
		dir = OutputDir()
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%06d.%s", c.Filename, step, c.Format))
}

// WakeSnapshot is a wake shape at a time step.
type WakeSnapshot struct {
	Step  int
	Time  float64
	Shape WakeShape
}

// StreamWakeShapes writes every snapshot of the channel to its own file until the channel is
// closed. Failures are logged and the snapshot is skipped.
func StreamWakeShapes(conf ExportConfig, snapshots <-chan WakeSnapshot, logger log.Logger, metrics *Metrics) {
	for snap := range snapshots {
		metrics.setExportQueue(len(snapshots))
		name := conf.path(snap.Step)
		if err := writeWakeFile(name, conf.Format, snap); err != nil {
			level.Error(logger).Log("subsys", "export", "file", name, "err", err)
			continue
		}
		metrics.wroteExport()
		level.Debug(logger).Log("subsys", "export", "file", name, "panels", len(snap.Shape.Panels))
	}
}

func writeWakeFile(name string, format ExportFormat, snap WakeSnapshot) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if format == OBJFormat {
		err = WriteOBJ(w, snap.Shape)
	} else {
		err = WriteVTK(w, snap.Shape, fmt.Sprintf("wake at t = %g s", snap.Time))
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// WriteVTK writes the shape as legacy ASCII VTK polydata with the strengths as cell data.
func WriteVTK(w io.Writer, s WakeShape, title string) error {
	bw := &errWriter{w: w}
	bw.printf("# vtk DataFile Version 3.0\n%s\nASCII\nDATASET POLYDATA\n", title)
	bw.printf("POINTS %d double\n", len(s.Points))
	for _, p := range s.Points {
		bw.printf("%g %g %g\n", p.X, p.Y, p.Z)
	}
	bw.printf("POLYGONS %d %d\n", len(s.Panels), 5*len(s.Panels))
	for _, q := range s.Panels {
		bw.printf("4 %d %d %d %d\n", q[0], q[1], q[2], q[3])
	}
	if len(s.Strengths) == len(s.Panels) {
		bw.printf("CELL_DATA %d\nSCALARS strength double 1\nLOOKUP_TABLE default\n", len(s.Panels))
		for _, g := range s.Strengths {
			bw.printf("%g\n", g)
		}
	}
	return bw.err
}

// WriteOBJ writes the shape as Wavefront OBJ faces.
func WriteOBJ(w io.Writer, s WakeShape) error {
	bw := &errWriter{w: w}
	for _, p := range s.Points {
		bw.printf("v %g %g %g\n", p.X, p.Y, p.Z)
	}
	for _, q := range s.Panels {
		// OBJ indices start at one
		bw.printf("f %d %d %d %d\n", q[0]+1, q[1]+1, q[2]+1, q[3]+1)
	}
	return bw.err
}

// errWriter keeps the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
