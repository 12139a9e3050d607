package scoring_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/leadscore/internal/domain/encoding"
	"github.com/okian/leadscore/internal/domain/lead"
	"github.com/okian/leadscore/internal/domain/scoring"
	"github.com/okian/leadscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func trainModel(ctx context.Context, opts ...scoring.Option) (scoring.Model, scoring.Report, error) {
	rows := lead.Synthesize(600, 1)
	return scoring.NewForestTrainer(opts...).Train(ctx, rows)
}

func TestForestTrainer_Train(t *testing.T) {
	Convey("Given synthetic labeled leads", t, func() {
		ctx := context.Background()

		Convey("When training with default options", func() {
			model, report, err := trainModel(ctx, scoring.WithWorkers(4))

			Convey("Then it learns the labeling rule", func() {
				So(err, ShouldBeNil)
				So(report.Trees, ShouldEqual, 50)
				So(report.TrainRows, ShouldEqual, 480)
				So(report.TestRows, ShouldEqual, 120)
				So(report.Accuracy, ShouldBeGreaterThan, 0.85)
				So(model.Forest.Features(), ShouldEqual, len(encoding.FeatureNames))
			})

			Convey("And obvious leads land on the expected side", func() {
				rows := []lead.Lead{
					{Company: "TechSoft", Industry: "Software", Role: "VP", Location: "Boston", CompanySize: 900, PastInteractionScore: 0.95},
					{Company: "TechSoft", Industry: "Software", Role: "Intern", Location: "Boston", CompanySize: 60, PastInteractionScore: 0.05},
				}
				probs, err := model.Forest.PredictProba(ctx, encoding.FeatureMatrix(encoding.Apply(rows, model.Codes)))
				So(err, ShouldBeNil)
				So(probs[0], ShouldBeGreaterThan, 0.5)
				So(probs[1], ShouldBeLessThan, 0.5)
			})

			Convey("And an unseen role still gets a probability", func() {
				rows := []lead.Lead{{Company: "TechSoft", Industry: "Software", Role: "Freelancer", Location: "Boston", CompanySize: 400, PastInteractionScore: 0.7}}
				encoded := encoding.Apply(rows, model.Codes)
				So(encoded[0].Role.Value, ShouldEqual, encoding.Unknown)

				probs, err := model.Forest.PredictProba(ctx, encoding.FeatureMatrix(encoded))
				So(err, ShouldBeNil)
				So(probs[0], ShouldBeBetweenOrEqual, 0, 1)
			})
		})

		Convey("When training twice with the same seed and different parallelism", func() {
			a, _, errA := trainModel(ctx, scoring.WithTrees(10), scoring.WithWorkers(1))
			b, _, errB := trainModel(ctx, scoring.WithTrees(10), scoring.WithWorkers(8))
			So(errA, ShouldBeNil)
			So(errB, ShouldBeNil)

			Convey("Then predictions are identical", func() {
				X := encoding.FeatureMatrix(encoding.Apply(lead.Synthesize(50, 99), a.Codes))
				pa, _ := a.Forest.PredictProba(ctx, X)
				pb, _ := b.Forest.PredictProba(ctx, X)
				So(pa, ShouldResemble, pb)
			})
		})

		Convey("When a row has no label", func() {
			rows := lead.Synthesize(10, 1)
			rows[3].LeadScore = nil
			_, _, err := scoring.NewForestTrainer().Train(ctx, rows)

			Convey("Then training fails", func() {
				So(errors.Is(err, scoring.ErrNoTrainingData), ShouldBeTrue)
			})
		})

		Convey("When there are no rows", func() {
			_, _, err := scoring.NewForestTrainer().Train(ctx, nil)
			So(errors.Is(err, scoring.ErrNoTrainingData), ShouldBeTrue)
		})
	})
}

func TestForestTrainer_Fit(t *testing.T) {
	Convey("Given a trainer", t, func() {
		ctx := context.Background()
		trainer := scoring.NewForestTrainer(scoring.WithTrees(5))

		Convey("When labels are not binary", func() {
			_, err := trainer.Fit(ctx, [][]float64{{1}, {2}}, []int{0, 2})
			So(err, ShouldNotBeNil)
		})

		Convey("When rows are ragged", func() {
			_, err := trainer.Fit(ctx, [][]float64{{1, 2}, {2}}, []int{0, 1})
			So(errors.Is(err, scoring.ErrFeatureMismatch), ShouldBeTrue)
		})

		Convey("When the data is separable on one feature", func() {
			X := [][]float64{{0}, {1}, {2}, {3}, {10}, {11}, {12}, {13}}
			y := []int{0, 0, 0, 0, 1, 1, 1, 1}
			forest, err := scoring.NewForestTrainer(scoring.WithTrees(5), scoring.WithBootstrap(false)).Fit(ctx, X, y)
			So(err, ShouldBeNil)

			Convey("Then both sides are predicted with certainty", func() {
				probs, err := forest.PredictProba(ctx, [][]float64{{-5}, {20}})
				So(err, ShouldBeNil)
				So(probs, ShouldResemble, []float64{0, 1})
			})

			Convey("And rows of the wrong width are rejected", func() {
				_, err := forest.PredictProba(ctx, [][]float64{{1, 2}})
				So(errors.Is(err, scoring.ErrFeatureMismatch), ShouldBeTrue)
			})

			Convey("And a canceled context is honored", func() {
				canceled, cancel := context.WithCancel(ctx)
				cancel()
				_, err := forest.PredictProba(canceled, [][]float64{{1}})
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})

	Convey("Given an untrained forest", t, func() {
		var forest *scoring.Forest
		_, err := forest.PredictProba(context.Background(), [][]float64{{1}})
		So(errors.Is(err, scoring.ErrNotTrained), ShouldBeTrue)
	})
}

func TestArtifact(t *testing.T) {
	Convey("Given a trained model", t, func() {
		ctx := context.Background()
		model, _, err := trainModel(ctx, scoring.WithTrees(8))
		So(err, ShouldBeNil)

		Convey("When it is saved and loaded", func() {
			path := filepath.Join(t.TempDir(), "models", "model.json")
			So(scoring.SaveFile(path, model), ShouldBeNil)
			loaded, err := scoring.LoadFile(path)
			So(err, ShouldBeNil)

			Convey("Then predictions and codes are unchanged", func() {
				X := encoding.FeatureMatrix(encoding.Apply(lead.Synthesize(40, 5), model.Codes))
				want, _ := model.Forest.PredictProba(ctx, X)
				got, err := loaded.Forest.PredictProba(ctx, X)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, want)
				So(loaded.Codes.Equal(model.Codes), ShouldBeTrue)
				So(loaded.Forest.Trees(), ShouldEqual, 8)
			})
		})

		Convey("When the artifact has another version", func() {
			var buf bytes.Buffer
			So(scoring.Save(&buf, model), ShouldBeNil)
			data := strings.Replace(buf.String(), `"version":1`, `"version":9`, 1)
			_, err := scoring.Load(strings.NewReader(data))
			So(errors.Is(err, scoring.ErrInvalidArtifact), ShouldBeTrue)
		})
	})

	Convey("Given corrupt artifacts", t, func() {
		cases := map[string]string{
			"not json":      `{`,
			"no trees":      `{"version":1,"features":["Company","Industry","Role","Location","CompanySize","PastInteractionScore"],"trees":[]}`,
			"bad features":  `{"version":1,"features":["a"],"trees":[[{"f":0,"t":0,"l":-1,"r":-1,"p":0.5}]]}`,
			"cyclic child":  `{"version":1,"features":["Company","Industry","Role","Location","CompanySize","PastInteractionScore"],"trees":[[{"f":0,"t":0,"l":0,"r":0,"p":0.5}]]}`,
			"feature range": `{"version":1,"features":["Company","Industry","Role","Location","CompanySize","PastInteractionScore"],"trees":[[{"f":9,"t":0,"l":1,"r":2,"p":0.5},{"l":-1,"r":-1},{"l":-1,"r":-1}]]}`,
		}
		for name, data := range cases {
			_, err := scoring.Load(strings.NewReader(data))
			So(errors.Is(err, scoring.ErrInvalidArtifact), ShouldBeTrue)
			So(name, ShouldNotBeEmpty)
		}

		_, err := scoring.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
		So(err, ShouldNotBeNil)
	})

	Convey("Given an untrained model", t, func() {
		So(errors.Is(scoring.Save(&bytes.Buffer{}, scoring.Model{}), scoring.ErrNotTrained), ShouldBeTrue)
	})
}

func TestAccuracy(t *testing.T) {
	Convey("Given labels and probabilities", t, func() {
		So(scoring.Accuracy([]int{1, 0, 1, 0}, []float64{0.9, 0.2, 0.4, 0.5}, 0.5), ShouldEqual, 0.5)
		So(scoring.Accuracy(nil, nil, 0.5), ShouldEqual, 0.0)
	})
}
