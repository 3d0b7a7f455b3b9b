package ocicollectors

import (
	"context"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/objectstorage"

	ocitypes "github.com/praetorian-inc/ocigraph/pkg/types/oci"
)

// ObjectStorageAPI is the part of objectstorage.ObjectStorageClient the collector uses.
type ObjectStorageAPI interface {
	GetNamespace(ctx context.Context, request objectstorage.GetNamespaceRequest) (objectstorage.GetNamespaceResponse, error)
	ListBuckets(ctx context.Context, request objectstorage.ListBucketsRequest) (objectstorage.ListBucketsResponse, error)
	GetBucket(ctx context.Context, request objectstorage.GetBucketRequest) (objectstorage.GetBucketResponse, error)
}

type ObjectStorageCollector struct {
	base
	client    ObjectStorageAPI
	namespace string
}

func NewObjectStorageCollector(client ObjectStorageAPI, opts ...Option) *ObjectStorageCollector {
	return &ObjectStorageCollector{base: newBase(opts), client: client}
}

// Namespace returns the tenancy's object storage namespace, fetched once.
func (c *ObjectStorageCollector) Namespace(ctx context.Context) (string, error) {
	if c.namespace != "" {
		return c.namespace, nil
	}
	resp, err := call(ctx, c.base, "objectstorage.GetNamespace", func(ctx context.Context) (objectstorage.GetNamespaceResponse, error) {
		return c.client.GetNamespace(ctx, objectstorage.GetNamespaceRequest{})
	})
	if err != nil {
		return "", err
	}
	c.namespace = deref(resp.Value)
	return c.namespace, nil
}

// ListBuckets lists bucket summaries and then fetches each bucket, since only
// the full bucket carries ids, tags and access settings.
func (c *ObjectStorageCollector) ListBuckets(ctx context.Context, compartmentID string) ([]ocitypes.Record, error) {
	namespace, err := c.Namespace(ctx)
	if err != nil {
		return nil, err
	}

	summaries, err := listAll(ctx, c.base, "objectstorage.ListBuckets", func(ctx context.Context, page *string) ([]objectstorage.BucketSummary, *string, error) {
		resp, err := c.client.ListBuckets(ctx, objectstorage.ListBucketsRequest{
			NamespaceName: common.String(namespace),
			CompartmentId: common.String(compartmentID),
			Page:          page,
		})
		return resp.Items, resp.OpcNextPage, err
	})
	if err != nil {
		return nil, err
	}

	buckets := make([]objectstorage.Bucket, 0, len(summaries))
	for _, summary := range summaries {
		resp, err := call(ctx, c.base, "objectstorage.GetBucket", func(ctx context.Context) (objectstorage.GetBucketResponse, error) {
			return c.client.GetBucket(ctx, objectstorage.GetBucketRequest{
				NamespaceName: common.String(namespace),
				BucketName:    summary.Name,
			})
		})
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, resp.Bucket)
	}
	return records(c.base, buckets)
}
