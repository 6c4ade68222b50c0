package forecaster

import (
	"math/rand/v2"
	"testing"

	"github.com/aouyang1/go-disease-tracker/timedataset"
	"github.com/goccy/go-json"
	"github.com/pkg/profile"
)

var benchRes *Results

// benchRecords is three years of daily counts growing 0.2% a day with 20% noise
func benchRecords() timedataset.Records {
	t := dailyDates(3 * 365)
	rng := rand.New(rand.NewPCG(1, 2))
	y := timedataset.GenerateGrowthY(len(t), 50, 0.002).
		Mul(timedataset.GenerateNoise(len(t), 0.9, 1.1, rng))

	records := make(timedataset.Records, len(t))
	for i := range records {
		records[i] = timedataset.Record{Date: t[i], Cases: int64(y[i])}
	}
	return records
}

func BenchmarkForecastRecords(b *testing.B) {
	records := benchRecords()
	for b.Loop() {
		f, err := New(nil)
		if err != nil {
			b.Fatal(err)
		}
		benchRes, err = f.ForecastRecords(records, 30)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPredictFromModel(b *testing.B) {
	f, err := New(nil)
	if err != nil {
		b.Fatal(err)
	}
	if err := f.Fit(benchRecords().Dates(), benchRecords().Cases()); err != nil {
		b.Fatal(err)
	}
	m, err := f.Model()
	if err != nil {
		b.Fatal(err)
	}

	// restore through json the way a saved model is loaded
	data, err := json.Marshal(m)
	if err != nil {
		b.Fatal(err)
	}
	var restored Model
	if err := json.Unmarshal(data, &restored); err != nil {
		b.Fatal(err)
	}
	f, err = NewFromModel(restored)
	if err != nil {
		b.Fatal(err)
	}

	defer profile.Start(profile.CPUProfile, profile.ProfilePath(b.TempDir()), profile.Quiet).Stop()
	for b.Loop() {
		benchRes, err = f.Predict(180)
		if err != nil {
			b.Fatal(err)
		}
	}
}
