package refreshtokens

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/blogauth/internal/common"
	"github.com/dmitrijs2005/blogauth/internal/server/models"
	"github.com/google/uuid"
)

// NewFamily returns a random family identifier for a new login.
func NewFamily() (string, error) {
	return common.MakeRandHexString(common.FamilyBytes)
}

// newToken builds an unsaved token row with a fresh id and value.
func newToken(userID, family string, expiresAt time.Time, meta models.SessionMetadata) (*models.RefreshToken, error) {
	value, err := common.MakeRandHexString(common.RefreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	if family == "" {
		if family, err = NewFamily(); err != nil {
			return nil, fmt.Errorf("generate family: %w", err)
		}
	}
	return &models.RefreshToken{
		ID:        uuid.NewString(),
		Token:     value,
		UserID:    userID,
		Family:    family,
		ExpiresAt: expiresAt,
		Metadata:  meta,
	}, nil
}
