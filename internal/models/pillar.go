package models

// Pillar is one of the externally tracked achievement categories.
type Pillar string

const (
	PillarLearning     Pillar = "learning_certificate"
	PillarCareer       Pillar = "career"
	PillarNetworking   Pillar = "networking"
	PillarCoding       Pillar = "coding"
	PillarSocialImpact Pillar = "social_impact"
)

// SubmissionStatusApproved marks collaborator submissions that count toward scores.
const SubmissionStatusApproved = "approved"
