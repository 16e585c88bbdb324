package store

import (
	"context"

	"identity/internal/domain"

	"github.com/google/uuid"
)

type MemberStore struct{ store *Store }

func (s *Store) Members() *MemberStore { return &MemberStore{store: s} }

func (m *MemberStore) Create(ctx context.Context, member *domain.CommunityMember) error {
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	member.Class = domain.ClassCommunity
	return translate(m.store.DB.WithContext(ctx).Create(member).Error)
}

func (m *MemberStore) GetByID(ctx context.Context, id domain.PrincipalID) (*domain.Principal, error) {
	var member domain.CommunityMember
	if err := m.store.DB.WithContext(ctx).Take(&member, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	member.Class = domain.ClassCommunity
	return &member.Principal, nil
}

func (m *MemberStore) GetByUsername(ctx context.Context, username string) (*domain.Principal, error) {
	var member domain.CommunityMember
	if err := m.store.DB.WithContext(ctx).Take(&member, "username = ?", username).Error; err != nil {
		return nil, translate(err)
	}
	member.Class = domain.ClassCommunity
	return &member.Principal, nil
}

func (m *MemberStore) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	var member domain.CommunityMember
	if err := m.store.DB.WithContext(ctx).Take(&member, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	member.Class = domain.ClassCommunity
	return &member.Principal, nil
}
