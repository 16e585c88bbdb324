package store

import (
	"context"

	"identity/internal/domain"

	"github.com/google/uuid"
)

type ResearcherStore struct{ store *Store }

func (s *Store) Researchers() *ResearcherStore { return &ResearcherStore{store: s} }

func (r *ResearcherStore) Create(ctx context.Context, researcher *domain.Researcher) error {
	if researcher.ID == uuid.Nil {
		researcher.ID = uuid.New()
	}
	researcher.Class = domain.ClassResearcher
	return translate(r.store.DB.WithContext(ctx).Create(researcher).Error)
}

func (r *ResearcherStore) GetByID(ctx context.Context, id domain.PrincipalID) (*domain.Principal, error) {
	var researcher domain.Researcher
	if err := r.store.DB.WithContext(ctx).Take(&researcher, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	researcher.Class = domain.ClassResearcher
	return &researcher.Principal, nil
}

func (r *ResearcherStore) GetByUsername(ctx context.Context, username string) (*domain.Principal, error) {
	var researcher domain.Researcher
	if err := r.store.DB.WithContext(ctx).Take(&researcher, "username = ?", username).Error; err != nil {
		return nil, translate(err)
	}
	researcher.Class = domain.ClassResearcher
	return &researcher.Principal, nil
}

func (r *ResearcherStore) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	var researcher domain.Researcher
	if err := r.store.DB.WithContext(ctx).Take(&researcher, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	researcher.Class = domain.ClassResearcher
	return &researcher.Principal, nil
}

func (r *ResearcherStore) UpdateEducation(ctx context.Context, id domain.PrincipalID, edu domain.EducationProfile) error {
	return translate(r.store.DB.WithContext(ctx).Model(&domain.Researcher{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"edu_degree":          edu.Degree,
			"edu_field":           edu.Field,
			"edu_institution":     edu.Institution,
			"edu_graduation_year": edu.GraduationYear,
			"edu_specialization":  edu.Specialization,
			"edu_certifications":  edu.Certifications,
		}).Error)
}
