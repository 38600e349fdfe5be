package test_test

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/anima/engine/test"
)

func TestSuccessOutcomes(t *testing.T) {
	var err error
	for _, v := range []any{true, nil, err} {
		test.ExpectSuccess(t, v)
		test.DemandSuccess(t, v)
	}
}

func TestFailureOutcomes(t *testing.T) {
	for _, v := range []any{false, errors.New("broken")} {
		test.ExpectFailure(t, v)
	}
}

func TestEquality(t *testing.T) {
	test.ExpectEquality(t, 10, 10)
	test.DemandEquality(t, "color0", "color0")
	test.ExpectInequality(t, uint32(1), uint32(2))
}
