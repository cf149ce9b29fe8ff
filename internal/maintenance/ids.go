package maintenance

import (
	"strings"

	"github.com/google/uuid"
	"github.com/ukydev/car-maintenance/internal/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NormalizeTaskID accepts a 24-hex-digit ObjectID or a canonical RFC 4122 UUID (versions 1-5)
// and returns it in the lowercase form the stores key on.
func NormalizeTaskID(id string) (string, error) {
	if primitive.IsValidObjectID(id) || isUUID(id) {
		return strings.ToLower(id), nil
	}
	return "", apperr.InvalidArgument("invalid task id %q", id)
}

func isUUID(id string) bool {
	if len(id) != 36 {
		return false
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	v := u.Version()
	return v >= 1 && v <= 5 && u.Variant() == uuid.RFC4122
}
