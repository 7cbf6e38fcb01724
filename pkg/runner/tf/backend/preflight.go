package backend

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	ocicommon "github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/objectstorage"
)

func init() {
	RegisterPreflight("s3", checkS3)
	RegisterPreflight("oci", checkOCI)
}

// checkS3 confirms the configured bucket is reachable via HeadBucket
// before Terraform ever runs init against it. Grounded on SPEC_FULL.md
// §B.4: soft-fail only, the caller decides whether to log and continue.
func checkS3(ctx context.Context, cfg map[string]interface{}) error {
	bucket, _ := cfg["bucket"].(string)
	if bucket == "" {
		return nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return err
	}
	client := s3.NewFromConfig(awsCfg)

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &bucket})
	if err != nil {
		return fmt.Errorf("s3 backend bucket %q unreachable: %w", bucket, err)
	}
	return nil
}

// checkOCI confirms the configured Object Storage bucket is reachable via
// HeadBucket. namespace/bucket come from the backend config block, same
// as Terraform's own oci backend arguments.
func checkOCI(ctx context.Context, cfg map[string]interface{}) error {
	bucket, _ := cfg["bucket"].(string)
	namespace, _ := cfg["namespace"].(string)
	if bucket == "" || namespace == "" {
		return nil
	}

	provider := ocicommon.DefaultConfigProvider()
	client, err := objectstorage.NewObjectStorageClientWithConfigurationProvider(provider)
	if err != nil {
		return err
	}

	_, err = client.HeadBucket(ctx, objectstorage.HeadBucketRequest{
		NamespaceName: &namespace,
		BucketName:    &bucket,
	})
	if err != nil {
		return fmt.Errorf("oci backend bucket %q/%q unreachable: %w", namespace, bucket, err)
	}
	return nil
}
