package chat

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"chat-ai-be/internal/models"

	"gorm.io/gorm"
)

// Store wraps the message and user queries the chat and AI layers share.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) GetUser(id uint) (*models.User, error) {
	var u models.User
	if err := s.DB.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("load user %d: %w", id, ErrDependencyFailure)
	}
	return &u, nil
}

func (s *Store) SaveMessage(m *models.Message) error {
	if err := s.DB.Create(m).Error; err != nil {
		return fmt.Errorf("persist message: %w", ErrDependencyFailure)
	}
	return nil
}

// History returns every message between a and b, either direction, ordered by
// created_at ascending with id as the tiebreak. Symmetric in its arguments.
func (s *Store) History(a, b uint) ([]models.Message, error) {
	return s.history(a, b, 0)
}

// HistoryLimited returns at most limit messages from the start of the
// conversation, same order as History.
func (s *Store) HistoryLimited(a, b uint, limit int) ([]models.Message, error) {
	return s.history(a, b, limit)
}

func (s *Store) history(a, b uint, limit int) ([]models.Message, error) {
	var msgs []models.Message
	q := s.DB.
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at asc, id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("load history: %w", ErrDependencyFailure)
	}
	return msgs, nil
}

// RecentHistory returns the newest limit messages between a and b, still in
// ascending order.
func (s *Store) RecentHistory(a, b uint, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := s.DB.
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("load history: %w", ErrDependencyFailure)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Partner is one sidebar row: another user plus the time of the last message
// exchanged with them, nil if the pair has never talked.
type Partner struct {
	User          models.User `json:"user"`
	LastMessageAt *time.Time  `json:"last_message_at"`
}

// Partners lists every other user for userID's sidebar. Users with a last
// message come first, most recent first; the rest follow ordered by id. Equal
// timestamps fall back to id ascending so the order is stable.
func (s *Store) Partners(userID uint) ([]Partner, error) {
	var users []models.User
	if err := s.DB.Where("id <> ?", userID).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load users: %w", ErrDependencyFailure)
	}

	var msgs []models.Message
	err := s.DB.
		Select("sender_id", "receiver_id", "created_at").
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("load last messages: %w", ErrDependencyFailure)
	}

	lastAt := make(map[uint]time.Time)
	for _, m := range msgs {
		partner := m.ReceiverID
		if partner == userID {
			partner = m.SenderID
		}
		if t, ok := lastAt[partner]; !ok || m.CreatedAt.After(t) {
			lastAt[partner] = m.CreatedAt
		}
	}

	partners := make([]Partner, 0, len(users))
	for _, u := range users {
		p := Partner{User: u}
		if t, ok := lastAt[u.ID]; ok {
			tt := t
			p.LastMessageAt = &tt
		}
		partners = append(partners, p)
	}

	sort.SliceStable(partners, func(i, j int) bool {
		pi, pj := partners[i], partners[j]
		switch {
		case pi.LastMessageAt != nil && pj.LastMessageAt == nil:
			return true
		case pi.LastMessageAt == nil && pj.LastMessageAt != nil:
			return false
		case pi.LastMessageAt != nil && pj.LastMessageAt != nil:
			if !pi.LastMessageAt.Equal(*pj.LastMessageAt) {
				return pi.LastMessageAt.After(*pj.LastMessageAt)
			}
			return pi.User.ID < pj.User.ID
		default:
			return pi.User.ID < pj.User.ID
		}
	})
	return partners, nil
}
