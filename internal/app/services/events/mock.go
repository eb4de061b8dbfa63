package events

import "github.com/smolville/miniapp/internal/app/domain/event"

// mockEvents is the fixed dataset substituted when the backend is confirmed
// or assumed unavailable.
var mockEvents = []event.Event{
	{
		ID:             1,
		Title:          "Горячий Лёд 2026 - 1 Этап",
		Type:           "Спорт",
		Date:           "2026-01-18T09:00:00.000000Z",
		Location:       "с. Охотское, Карьер «Охотский»",
		ImageURL:       "https://hundredtries.ru/smolville/server/images/1.jpeg",
		Description:    "Открытие серии Горячий Лёд",
		MapLink:        "https://2gis.ru/yuzhnosakhalinsk/geo/70030076320940240",
		AttendeesCount: 43,
	},
	{
		ID:             2,
		Title:          "Горячий Лёд 2026 - 2 Этап",
		Type:           "Спорт",
		Date:           "2026-02-01T09:00:00.000000Z",
		Location:       "с. Охотское, Карьер «Охотский»",
		ImageURL:       "https://hundredtries.ru/smolville/server/images/2.jpeg",
		Description:    "Продолжение гоночных разборок на льду",
		MapLink:        "https://2gis.ru/yuzhnosakhalinsk/geo/70030076320940240",
		AttendeesCount: 14,
	},
}

func (s *Service) loadMockEvents() {
	list := make([]event.Event, len(mockEvents))
	copy(list, mockEvents)

	s.mu.Lock()
	s.events = list
	s.mu.Unlock()
}
