package datasource

import (
	"fmt"

	"github.com/spf13/afero"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cubtera/cubtera/pkg/logging"
)

// New constructs the DataSource variant named by kind. This mirrors the
// factory-dispatch idiom used elsewhere (see DESIGN.md's note on
// pkg/storage/factory.go) but is a plain switch rather than a registry,
// since exactly two variants exist and neither is plugin-loaded.
func New(kind StorageKind, fs afero.Fs, mongoClient *mongo.Client, inventoryPath, org, dimType, separator string, logger logging.Interface) (DataSource, error) {
	switch kind {
	case KindFS:
		return NewFS(fs, inventoryPath, org, dimType, separator, logger), nil
	case KindDB:
		if mongoClient == nil {
			return nil, fmt.Errorf("datasource: DB backend selected but no mongo client configured")
		}
		return NewDB(mongoClient, org, dimType, logger), nil
	default:
		return nil, fmt.Errorf("datasource: unknown storage kind %q", kind)
	}
}
