package airtable

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/airtable/pkg/testutil"
)

// liveSuite exercises a real base. The table named by AIRTABLE_TEST_TABLE
// must have a singleLineText primary field; records created here are
// deleted again.
type liveSuite struct {
	testutil.LiveSuite
	client *Client
}

func TestLive(t *testing.T) {
	suite.Run(t, new(liveSuite))
}

func (s *liveSuite) SetupSuite() {
	s.LiveSuite.SetupSuite()

	client, err := New(s.BaseID, s.APIKey, WithLogger(testutil.TestLogger(s.T())))
	s.Require().NoError(err)
	s.client = client
}

func (s *liveSuite) TearDownSuite() {
	if s.client != nil {
		s.NoError(s.client.Close())
	}
	s.LiveSuite.TearDownSuite()
}

func (s *liveSuite) TestSchemaAndResolve() {
	ctx := s.Context()
	schema, err := s.client.GetSchema(ctx)
	s.Require().NoError(err)

	table := schema.Table(s.Table)
	s.Require().NotNil(table, "table %q not in base", s.Table)

	id, err := s.client.ResolveTableID(ctx, table.Name)
	if _, duplicate := err.(*DuplicateNameWarning); !duplicate {
		s.Require().NoError(err)
	}
	s.Equal(table.ID, id)
}

func (s *liveSuite) TestRecordRoundTrip() {
	ctx := s.Context()
	schema, err := s.client.GetSchema(ctx)
	s.Require().NoError(err)
	table := schema.Table(s.Table)
	s.Require().NotNil(table)
	primary := table.PrimaryField()
	s.Require().NotNil(primary)

	created, err := s.client.CreateRecords(ctx, table.ID, []Fields{
		{primary.Name: "airtable-go live test"},
	}, WriteOptions{Typecast: true})
	s.Require().NoError(err)
	s.Require().Len(created, 1)

	got, err := s.client.GetRecord(ctx, table.ID, created[0].ID)
	s.Require().NoError(err)
	s.Equal(created[0].ID, got.ID)
	s.Equal("airtable-go live test", got.Fields[primary.Name])

	deleted, err := s.client.DeleteRecords(ctx, table.ID, []string{created[0].ID})
	s.Require().NoError(err)
	s.Equal([]string{created[0].ID}, deleted)
}
