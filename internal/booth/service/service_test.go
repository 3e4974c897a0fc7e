package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"stamprally/internal/booth/service"
	boothstore "stamprally/internal/booth/store"
	visitmodels "stamprally/internal/visit/models"
	visitstore "stamprally/internal/visit/store"
	dErrors "stamprally/pkg/domain-errors"
)

type BoothServiceSuite struct {
	suite.Suite
	booths *boothstore.InMemory
	visits *visitstore.InMemory
	svc    *service.Service
	ctx    context.Context
}

func TestBoothServiceSuite(t *testing.T) {
	suite.Run(t, new(BoothServiceSuite))
}

func (s *BoothServiceSuite) SetupTest() {
	s.booths = boothstore.NewInMemory()
	s.visits = visitstore.NewInMemory()
	s.svc = service.New(s.booths, s.visits)
	s.ctx = context.Background()
}

func (s *BoothServiceSuite) stamp(boothID uuid.UUID) {
	s.Require().NoError(s.visits.Create(s.ctx, &visitmodels.Visit{
		ID:            uuid.New(),
		ParticipantID: uuid.New(),
		BoothID:       boothID,
		StampedAt:     time.Now(),
	}))
}

func (s *BoothServiceSuite) TestCreate() {
	s.Run("success", func() {
		b, err := s.svc.Create(s.ctx, "BOOTH001", "Paper Craft Workshop", "Make souvenirs", true)
		s.Require().NoError(err)
		s.Equal("BOOTH001", b.Code)
		s.True(b.Active)
	})

	s.Run("duplicate code", func() {
		_, err := s.svc.Create(s.ctx, "BOOTH001", "Another", "", true)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("invalid attributes", func() {
		_, err := s.svc.Create(s.ctx, "", "No Code", "", true)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *BoothServiceSuite) TestUpdate() {
	b, err := s.svc.Create(s.ctx, "BOOTH001", "Old Name", "", true)
	s.Require().NoError(err)
	_, err = s.svc.Create(s.ctx, "BOOTH002", "Holder", "", true)
	s.Require().NoError(err)

	s.Run("rename keeps own code", func() {
		updated, err := s.svc.Update(s.ctx, b.ID, "BOOTH001", "New Name", "desc", true)
		s.Require().NoError(err)
		s.Equal("New Name", updated.Name)
	})

	s.Run("code collision", func() {
		_, err := s.svc.Update(s.ctx, b.ID, "BOOTH002", "New Name", "", true)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown booth", func() {
		_, err := s.svc.Update(s.ctx, uuid.New(), "BOOTH009", "Ghost", "", true)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *BoothServiceSuite) TestDeleteOrDeactivate() {
	s.Run("unvisited booth is deleted", func() {
		b, err := s.svc.Create(s.ctx, "BOOTH001", "Doomed", "", true)
		s.Require().NoError(err)

		result, err := s.svc.DeleteOrDeactivate(s.ctx, b.ID)
		s.Require().NoError(err)
		s.Equal(service.ActionDeleted, result.Action)

		_, err = s.svc.GetActiveByCode(s.ctx, "BOOTH001")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("visited booth is deactivated, ledger survives", func() {
		b, err := s.svc.Create(s.ctx, "BOOTH002", "Popular", "", true)
		s.Require().NoError(err)
		s.stamp(b.ID)
		s.stamp(b.ID)

		result, err := s.svc.DeleteOrDeactivate(s.ctx, b.ID)
		s.Require().NoError(err)
		s.Equal(service.ActionDeactivated, result.Action)
		s.Equal(2, result.VisitCount)

		// Gone from the public surface but still in the registry.
		_, err = s.svc.GetActiveByCode(s.ctx, "BOOTH002")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		all, err := s.svc.ListAll(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(all, 1)
		s.False(all[0].Active)

		count, err := s.visits.CountByBooth(s.ctx, b.ID)
		s.Require().NoError(err)
		s.Equal(2, count)
	})
}

func (s *BoothServiceSuite) TestGetActiveByCode() {
	b, err := s.svc.Create(s.ctx, "BOOTH001", "Visible", "", true)
	s.Require().NoError(err)
	s.stamp(b.ID)

	found, err := s.svc.GetActiveByCode(s.ctx, "BOOTH001")
	s.Require().NoError(err)
	s.Equal(b.ID, found.ID)
	s.Equal(1, found.VisitCount)

	_, err = s.svc.Create(s.ctx, "BOOTH002", "Hidden", "", false)
	s.Require().NoError(err)
	_, err = s.svc.GetActiveByCode(s.ctx, "BOOTH002")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.GetActiveByCode(s.ctx, "")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *BoothServiceSuite) TestListActive() {
	_, err := s.svc.Create(s.ctx, "BOOTH002", "Second", "", true)
	s.Require().NoError(err)
	_, err = s.svc.Create(s.ctx, "BOOTH001", "First", "", true)
	s.Require().NoError(err)
	_, err = s.svc.Create(s.ctx, "BOOTH003", "Hidden", "", false)
	s.Require().NoError(err)

	active, err := s.svc.ListActive(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(active, 2)
	s.Equal("BOOTH001", active[0].Code)
	s.Equal("BOOTH002", active[1].Code)
}
