package workbook

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
)

// WriteSamples saves samples as a single-sheet survey workbook that
// ReadSamples can load back.
func WriteSamples(path, sheet string, samples []domain.Sample) error {
	if sheet == "" {
		sheet = "Survey"
	}
	f := xlsx.NewFile()
	s, err := f.AddSheet(sheet)
	if err != nil {
		return eris.Wrap(err, "workbook: add sheet")
	}

	header := s.AddRow()
	for _, h := range []string{DistanceHeader, ChargeHeader, PPVHeader} {
		header.AddCell().SetString(h)
	}
	for _, sample := range samples {
		row := s.AddRow()
		row.AddCell().SetFloat(sample.Distance)
		row.AddCell().SetFloat(sample.ChargePerDelay)
		row.AddCell().SetFloat(sample.PPV)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "workbook: save")
	}
	return nil
}
