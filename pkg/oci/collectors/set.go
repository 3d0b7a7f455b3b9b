package ocicollectors

// Set holds the collectors bound to one region.
type Set struct {
	Region        string
	Compute       *ComputeCollector
	Network       *NetworkCollector
	Block         *BlockCollector
	ObjectStorage *ObjectStorageCollector
	Database      *DatabaseCollector
	Gateway       *GatewayCollector
	LoadBalancer  *LoadBalancerCollector
}
