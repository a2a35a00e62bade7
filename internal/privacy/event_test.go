package privacy

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type PrepareEventSuite struct {
	suite.Suite
	raw RawEvent
}

func TestPrepareEventSuite(t *testing.T) {
	suite.Run(t, new(PrepareEventSuite))
}

func (s *PrepareEventSuite) SetupTest() {
	s.raw = RawEvent{
		LinkID:     uuid.New(),
		Timestamp:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		IP:         "192.168.1.123",
		Country:    "DE",
		Region:     "BY",
		Language:   "de-DE",
		DeviceType: "mobile",
		Referrer:   "https://x.com",
	}
}

func (s *PrepareEventSuite) TestDefaultSettings() {
	ev := PrepareEvent(s.raw, DefaultSettings())

	s.Run("drops the referrer", func() {
		s.Nil(ev.Referrer)
	})

	s.Run("drops the IP entirely", func() {
		s.Nil(ev.AnonymizedIP)
	})

	s.Run("keeps geo device and language", func() {
		s.Require().NotNil(ev.Country)
		s.Equal("DE", *ev.Country)
		s.Require().NotNil(ev.Region)
		s.Equal("BY", *ev.Region)
		s.Require().NotNil(ev.DeviceType)
		s.Equal("mobile", *ev.DeviceType)
		s.Require().NotNil(ev.Language)
		s.Equal("de-DE", *ev.Language)
	})
}

func (s *PrepareEventSuite) TestFieldGating() {
	s.Run("geo flag gates country and region together", func() {
		settings := DefaultSettings()
		settings.CollectGeoData = false
		ev := PrepareEvent(s.raw, settings)
		s.Nil(ev.Country)
		s.Nil(ev.Region)
	})

	s.Run("device flag gates device type", func() {
		settings := DefaultSettings()
		settings.CollectDeviceType = false
		ev := PrepareEvent(s.raw, settings)
		s.Nil(ev.DeviceType)
	})

	s.Run("referrer flag admits the referrer", func() {
		settings := DefaultSettings()
		settings.CollectReferrer = true
		ev := PrepareEvent(s.raw, settings)
		s.Require().NotNil(ev.Referrer)
		s.Equal("https://x.com", *ev.Referrer)
	})

	s.Run("language passes through regardless of flags", func() {
		settings := Settings{IPAnonymization: LevelFull}
		ev := PrepareEvent(s.raw, settings)
		s.Require().NotNil(ev.Language)
		s.Equal("de-DE", *ev.Language)
	})

	s.Run("empty raw fields stay absent", func() {
		raw := RawEvent{LinkID: s.raw.LinkID, Timestamp: s.raw.Timestamp}
		settings := DefaultSettings()
		settings.CollectReferrer = true
		ev := PrepareEvent(raw, settings)
		s.Nil(ev.Country)
		s.Nil(ev.Region)
		s.Nil(ev.Language)
		s.Nil(ev.DeviceType)
		s.Nil(ev.Referrer)
	})
}

func (s *PrepareEventSuite) TestPartialIPFlows() {
	settings := DefaultSettings()
	settings.IPAnonymization = LevelPartial

	ev := PrepareEvent(s.raw, settings)
	s.Require().NotNil(ev.AnonymizedIP)
	s.Equal("192.168.1.0", *ev.AnonymizedIP)
}

func (s *PrepareEventSuite) TestDeterminism() {
	settings := DefaultSettings()
	first := PrepareEvent(s.raw, settings)
	second := PrepareEvent(s.raw, settings)
	s.Equal(first, second)
}

func (s *PrepareEventSuite) TestSettingsValidation() {
	s.Run("accepts defaults", func() {
		s.NoError(DefaultSettings().Validate())
	})

	s.Run("rejects unknown level", func() {
		settings := DefaultSettings()
		settings.IPAnonymization = "pseudonymize"
		s.Error(settings.Validate())
	})

	s.Run("rejects out-of-range retention", func() {
		settings := DefaultSettings()
		settings.AnalyticsRetentionDays = MaxRetentionDays + 1
		s.Error(settings.Validate())

		settings = DefaultSettings()
		settings.AuditLogRetentionDays = -1
		s.Error(settings.Validate())
	})
}
