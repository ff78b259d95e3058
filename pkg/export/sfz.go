package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteSFZ renders the zones as an SFZ instrument definition. Sample
// paths are written relative to the instrument file, which sits next
// to them.
func WriteSFZ(w io.Writer, name string, zones []Zone) error {
	if _, err := fmt.Fprintf(w, "// %s\n\n<group>\n\n", name); err != nil {
		return err
	}
	for _, z := range zones {
		if _, err := fmt.Fprintf(w, "<region> sample=%s pitch_keycenter=%d lokey=%d hikey=%d",
			filepath.Base(z.File), z.Pitch, z.KeyLow, z.KeyHigh); err != nil {
			return err
		}
		if z.HasVelocityRange() {
			if _, err := fmt.Fprintf(w, " lovel=%d hivel=%d", z.VelLow, z.VelHigh); err != nil {
				return err
			}
		}
		if z.SeqLength > 1 {
			if _, err := fmt.Fprintf(w, " seq_length=%d seq_position=%d", z.SeqLength, z.SeqPosition); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// SFZ writes <dir>/<name>.sfz and returns the path written.
func SFZ(dir, name string, zones []Zone) (string, error) {
	path := filepath.Join(dir, name+".sfz")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteSFZ(f, name, zones); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
