package report

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
	"github.com/YuminosukeSato/scigo-testng/testng"
)

// PlotMSE saves a bar chart of the MSE of every persisted outcome. The
// image format follows the extension of path.
func PlotMSE(outcomes []testng.Outcome, path string) error {
	var (
		values plotter.Values
		names  []string
	)
	for _, o := range outcomes {
		if !o.Persisted {
			continue
		}
		values = append(values, o.MSE)
		names = append(names, o.TestCase.ID)
	}
	if len(values) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "no persisted outcomes to plot")
	}

	p := plot.New()
	p.Title.Text = "Training MSE per testcase"
	p.Y.Label.Text = "MSE"

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return errors.Wrap(err, "bar chart")
	}
	p.Add(bars)
	p.NominalX(names...)

	width := vg.Length(len(values)) * vg.Points(40)
	if width < 4*vg.Inch {
		width = 4 * vg.Inch
	}
	if err := p.Save(width, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}
