package export

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// manifest is the multisample.xml document placed at the root of a
// .multisample archive. Element and attribute names follow the Bitwig
// open schema.
type manifest struct {
	XMLName   xml.Name         `xml:"multisample"`
	Name      string           `xml:"name,attr"`
	Generator string           `xml:"generator"`
	Samples   []manifestSample `xml:"sample"`
}

type manifestSample struct {
	File      string        `xml:"file,attr"`
	ZoneLogic string        `xml:"zone-logic,attr"`
	Key       manifestKey   `xml:"key"`
	Velocity  *manifestZone `xml:"velocity,omitempty"`
}

type manifestKey struct {
	Root uint8 `xml:"root,attr"`
	Low  uint8 `xml:"low,attr"`
	High uint8 `xml:"high,attr"`
}

type manifestZone struct {
	Low  uint8 `xml:"low,attr"`
	High uint8 `xml:"high,attr"`
}

func buildManifest(name string, zones []Zone) manifest {
	m := manifest{
		Name:      name,
		Generator: "multisampler",
		Samples:   make([]manifestSample, 0, len(zones)),
	}
	for _, z := range zones {
		s := manifestSample{
			File:      filepath.Base(z.File),
			ZoneLogic: "round-robin",
			Key: manifestKey{
				Root: z.Pitch,
				Low:  z.KeyLow,
				High: z.KeyHigh,
			},
		}
		if z.HasVelocityRange() {
			s.Velocity = &manifestZone{Low: z.VelLow, High: z.VelHigh}
		}
		m.Samples = append(m.Samples, s)
	}
	return m
}

// WriteBitwig writes a complete .multisample archive: the manifest
// followed by every sample file, stored flat.
func WriteBitwig(w io.Writer, name string, zones []Zone) error {
	zw := zip.NewWriter(w)

	mw, err := zw.Create("multisample.xml")
	if err != nil {
		return fmt.Errorf("failed to create manifest entry: %w", err)
	}
	if _, err := io.WriteString(mw, xml.Header); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	enc := xml.NewEncoder(mw)
	enc.Indent("", "  ")
	if err := enc.Encode(buildManifest(name, zones)); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	for _, z := range zones {
		if err := addFile(zw, z.File); err != nil {
			return err
		}
	}
	return zw.Close()
}

// Bitwig packages the zones as <dir>/<name>.multisample and returns
// the path written.
func Bitwig(dir, name string, zones []Zone) (string, error) {
	path := filepath.Join(dir, name+".multisample")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteBitwig(f, name, zones); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

func addFile(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer src.Close()

	dst, err := zw.Create(filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", path, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to archive %s: %w", path, err)
	}
	return nil
}
