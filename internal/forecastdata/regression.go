package forecastdata

import (
	"fmt"
	"math"
	"time"

	"seiir/internal/csvio"
	"seiir/internal/failure"
	"seiir/internal/paths"
	"seiir/internal/scaling"
)

// TransitionDates returns each location's last fitted date for draw.
func (d *Interface) TransitionDates(draw int) (map[int]time.Time, error) {
	frame, err := d.readRegression(paths.KindDates, draw)
	if err != nil {
		return nil, err
	}
	locCol, err := frame.Column("location_id", "loc_id")
	if err != nil {
		return nil, err
	}
	dateCol, err := frame.Column("end_date")
	if err != nil {
		return nil, err
	}
	dates := make(map[int]time.Time, frame.Len())
	for row := 0; row < frame.Len(); row++ {
		location, err := frame.Int(row, locCol)
		if err != nil {
			return nil, err
		}
		date, err := frame.Date(row, dateCol)
		if err != nil {
			return nil, err
		}
		if _, dup := dates[location]; dup {
			return nil, failure.Wrap(failure.ErrValidation, "forecastdata", "transition dates",
				fmt.Sprintf("%s: location %d listed twice", frame.Source, location), nil)
		}
		dates[location] = date
	}
	return dates, nil
}

// BetaRegression returns the fitted and predicted beta series for draw.
func (d *Interface) BetaRegression(draw int) ([]scaling.BetaObservation, error) {
	frame, err := d.readRegression(paths.KindBetaRegression, draw)
	if err != nil {
		return nil, err
	}
	cols := make([]int, 4)
	for i, name := range []string{"location_id", "date", "beta", "beta_pred"} {
		if cols[i], err = frame.Column(name); err != nil {
			return nil, err
		}
	}
	obs := make([]scaling.BetaObservation, 0, frame.Len())
	for row := 0; row < frame.Len(); row++ {
		var o scaling.BetaObservation
		if o.Location, err = frame.Int(row, cols[0]); err != nil {
			return nil, err
		}
		if o.Date, err = frame.Date(row, cols[1]); err != nil {
			return nil, err
		}
		if o.Beta, err = frame.Float(row, cols[2]); err != nil {
			return nil, err
		}
		if o.BetaPred, err = frame.Float(row, cols[3]); err != nil {
			return nil, err
		}
		obs = append(obs, o)
	}
	return obs, nil
}

// TotalDeaths sums observed deaths per location from each location's draw 0
// infection file. Rows count when obs_deaths is 1.
func (d *Interface) TotalDeaths(locations []int) (map[int]float64, error) {
	totals := make(map[int]float64, len(locations))
	for _, location := range locations {
		path, err := d.Infections.Resolve(paths.Key{Kind: paths.KindInfection, Location: location, Draw: 0})
		if err != nil {
			return nil, err
		}
		frame, err := csvio.ReadFile(path)
		if err != nil {
			return nil, err
		}
		deathsCol, err := frame.Column("deaths")
		if err != nil {
			return nil, err
		}
		observedCol, err := frame.Column("obs_deaths")
		if err != nil {
			return nil, err
		}
		var total float64
		for row := 0; row < frame.Len(); row++ {
			observed, err := frame.Float(row, observedCol)
			if err != nil {
				return nil, err
			}
			if observed != 1 {
				continue
			}
			deaths, err := frame.Float(row, deathsCol)
			if err != nil {
				return nil, err
			}
			if !math.IsNaN(deaths) {
				total += deaths
			}
		}
		totals[location] = total
	}
	return totals, nil
}

// DrawInput loads one draw's transition dates and beta series.
func (d *Interface) DrawInput(draw int, locations []int, deaths map[int]float64) (scaling.DrawInput, error) {
	dates, err := d.TransitionDates(draw)
	if err != nil {
		return scaling.DrawInput{}, err
	}
	beta, err := d.BetaRegression(draw)
	if err != nil {
		return scaling.DrawInput{}, err
	}
	return scaling.DrawInput{
		Draw:            draw,
		Locations:       locations,
		TotalDeaths:     deaths,
		TransitionDates: dates,
		Beta:            beta,
	}, nil
}

func (d *Interface) readRegression(kind paths.Kind, draw int) (*csvio.Frame, error) {
	path, err := d.Regression.Resolve(paths.Key{Kind: kind, Draw: draw})
	if err != nil {
		return nil, err
	}
	return csvio.ReadFile(path)
}
