package scoring_test

import (
	"errors"
	"fmt"
	"testing"

	scoring "github.com/okian/creditscope/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDecisionFor(t *testing.T) {
	Convey("Given the two valid predictions", t, func() {
		Convey("Then 1 maps to a refusal", func() {
			So(scoring.DecisionFor(scoring.PredictionRefused), ShouldEqual, scoring.DecisionRefused)
			So(string(scoring.DecisionRefused), ShouldEqual, "Refusé")
		})

		Convey("Then 0 maps to an approval", func() {
			So(scoring.DecisionFor(scoring.PredictionApproved), ShouldEqual, scoring.DecisionApproved)
			So(string(scoring.DecisionApproved), ShouldEqual, "Accordé")
		})

		Convey("Then repeated calls return the same label", func() {
			for i := 0; i < 5; i++ {
				So(scoring.DecisionFor(1), ShouldEqual, scoring.DecisionFor(1))
				So(scoring.DecisionFor(0), ShouldEqual, scoring.DecisionFor(0))
			}
		})

		Convey("Then validity is limited to 0 and 1", func() {
			So(scoring.Prediction(0).Valid(), ShouldBeTrue)
			So(scoring.Prediction(1).Valid(), ShouldBeTrue)
			So(scoring.Prediction(2).Valid(), ShouldBeFalse)
			So(scoring.Prediction(-1).Valid(), ShouldBeFalse)
		})

		Convey("Then NewScoreResult carries the derived decision", func() {
			r := scoring.NewScoreResult(1)
			So(r.Prediction, ShouldEqual, scoring.PredictionRefused)
			So(r.Decision, ShouldEqual, scoring.DecisionRefused)
		})
	})
}

func TestProbabilityResult(t *testing.T) {
	Convey("Given a probability", t, func() {
		So(scoring.ProbabilityResult{Probability: 0.73}.Percent(), ShouldAlmostEqual, 73.0, 1e-9)
	})
}

func TestError(t *testing.T) {
	Convey("Given a status error", t, func() {
		err := &scoring.Error{Op: scoring.OpClassify, Kind: scoring.KindStatus, StatusCode: 500, Body: `{"detail":"boom"}`}

		Convey("Then it formats the operation, kind and status", func() {
			So(err.Error(), ShouldEqual, "classify: status (status 500)")
			So(err.Message(), ShouldContainSubstring, `500 - {"detail":"boom"}`)
		})

		Convey("Then KindOf finds it through wrapping", func() {
			kind, ok := scoring.KindOf(fmt.Errorf("predict: %w", err))
			So(ok, ShouldBeTrue)
			So(kind, ShouldEqual, scoring.KindStatus)
		})
	})

	Convey("Given a transport error", t, func() {
		cause := errors.New("connection refused")
		err := &scoring.Error{Op: scoring.OpProbability, Kind: scoring.KindTransport, Err: cause}

		Convey("Then it unwraps to the cause", func() {
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEndWith, "connection refused")
		})
	})

	Convey("Given contract errors", t, func() {
		Convey("Then the message names the missing value per operation", func() {
			c := &scoring.Error{Op: scoring.OpClassify, Kind: scoring.KindContract}
			p := &scoring.Error{Op: scoring.OpProbability, Kind: scoring.KindContract}
			So(c.Message(), ShouldContainSubstring, "prédiction")
			So(p.Message(), ShouldContainSubstring, "probabilité")
		})
	})

	Convey("Given a plain error", t, func() {
		_, ok := scoring.KindOf(errors.New("x"))
		So(ok, ShouldBeFalse)
	})
}
