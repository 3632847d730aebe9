package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// Environment variables read by LiveSuite
const (
	LiveAPIKeyEnv = "AIRTABLE_TEST_API_KEY"
	LiveBaseIDEnv = "AIRTABLE_TEST_BASE_ID"
	LiveTableEnv  = "AIRTABLE_TEST_TABLE"
)

// LiveSuite provides base functionality for tests against a real Airtable
// base. The suite is skipped in short mode and when the AIRTABLE_TEST_*
// variables are not set.
type LiveSuite struct {
	suite.Suite

	APIKey string
	BaseID string
	Table  string

	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// SetupSuite runs before all tests in the suite
func (s *LiveSuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("skipping live Airtable tests in short mode")
	}

	s.APIKey = os.Getenv(LiveAPIKeyEnv)
	s.BaseID = os.Getenv(LiveBaseIDEnv)
	s.Table = os.Getenv(LiveTableEnv)
	if s.APIKey == "" || s.BaseID == "" || s.Table == "" {
		s.T().Skipf("set %s, %s and %s to run live Airtable tests", LiveAPIKeyEnv, LiveBaseIDEnv, LiveTableEnv)
	}

	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)
	s.startTime = time.Now()
}

// TearDownSuite runs after all tests in the suite
func (s *LiveSuite) TearDownSuite() {
	if s.cancel != nil {
		s.cancel()
	}
	if !s.startTime.IsZero() {
		s.T().Logf("live suite completed in %v", time.Since(s.startTime))
	}
}

// Context returns the suite context
func (s *LiveSuite) Context() context.Context {
	return s.ctx
}
