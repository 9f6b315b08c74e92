package valueiter_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestValueIter(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Value Iteration Suite")
}
