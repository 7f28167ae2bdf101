// Package dataset loads measured impedance spectra and trims them before
// fitting.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var (
	ErrNoData        = errors.New("no impedance data")
	ErrBadRecord     = errors.New("malformed data record")
	ErrNonPositiveHz = errors.New("frequency must be positive")
)

// Dataset is a measured spectrum, one impedance per frequency.
type Dataset struct {
	Frequencies []float64
	Impedance   []complex128
}

func (d *Dataset) Len() int { return len(d.Frequencies) }

// ReadCSV reads "freq, Z', Z''" rows. Fields may be separated by commas or
// whitespace, a leading non-numeric header row is skipped, and lines
// starting with '#' are comments. Extra columns are ignored.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	d := &Dataset{}
	for rec := 1; ; rec++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRecord, err)
		}
		fields := splitFields(record)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("%w: record %d has %d fields, want 3", ErrBadRecord, rec, len(fields))
		}

		var v [3]float64
		for i := range v {
			v[i], err = strconv.ParseFloat(fields[i], 64)
			if err != nil {
				break
			}
		}
		if err != nil {
			if d.Len() == 0 && rec == 1 {
				continue // header
			}
			return nil, fmt.Errorf("%w: record %d: %v", ErrBadRecord, rec, err)
		}
		if !(v[0] > 0) || math.IsInf(v[0], 0) {
			return nil, fmt.Errorf("%w: record %d: %g", ErrNonPositiveHz, rec, v[0])
		}

		d.Frequencies = append(d.Frequencies, v[0])
		d.Impedance = append(d.Impedance, complex(v[1], v[2]))
	}

	if d.Len() == 0 {
		return nil, ErrNoData
	}
	return d, nil
}

// splitFields handles whitespace separated files, which csv sees as a
// single field per line.
func splitFields(record []string) []string {
	var fields []string
	for _, f := range record {
		fields = append(fields, strings.Fields(f)...)
	}
	return fields
}

// WriteCSV writes freqs and z in the layout ReadCSV accepts.
func WriteCSV(w io.Writer, freqs []float64, z []complex128) error {
	if len(freqs) != len(z) {
		return fmt.Errorf("%d frequencies, %d impedances", len(freqs), len(z))
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"freq", "z_real", "z_imag"}); err != nil {
		return err
	}
	for i, f := range freqs {
		err := cw.Write([]string{
			strconv.FormatFloat(f, 'g', -1, 64),
			strconv.FormatFloat(real(z[i]), 'g', -1, 64),
			strconv.FormatFloat(imag(z[i]), 'g', -1, 64),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (d *Dataset) filter(keep func(f float64, z complex128) bool) *Dataset {
	out := &Dataset{}
	for i, f := range d.Frequencies {
		if keep(f, d.Impedance[i]) {
			out.Frequencies = append(out.Frequencies, f)
			out.Impedance = append(out.Impedance, d.Impedance[i])
		}
	}
	return out
}

// IgnoreBelowX keeps only the points with a negative imaginary part,
// i.e. those plotted above the real axis of a Nyquist plot.
func (d *Dataset) IgnoreBelowX() *Dataset {
	return d.filter(func(_ float64, z complex128) bool { return imag(z) < 0 })
}

// CropFrequencies keeps fmin <= f <= fmax. A non-positive limit is open.
func (d *Dataset) CropFrequencies(fmin, fmax float64) *Dataset {
	return d.filter(func(f float64, _ complex128) bool {
		if fmin > 0 && f < fmin {
			return false
		}
		if fmax > 0 && f > fmax {
			return false
		}
		return true
	})
}
