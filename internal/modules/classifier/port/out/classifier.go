package out

import (
	"context"

	"queuebreaker/internal/modules/classifier/domain"
)

type Host interface {
	CheckLifecycle(ctx context.Context, manifest domain.Manifest) error
	GetMetadata(ctx context.Context, manifest domain.Manifest) (domain.Metadata, error)
	Classify(ctx context.Context, manifest domain.Manifest, snapshot string) (string, error)
}
