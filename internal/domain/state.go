package domain

// Stage enumerates the per-design pipeline milestones.
type Stage string

const (
	StageNew            Stage = "NEW"
	StageFingerprinted  Stage = "FINGERPRINTED"
	StageUploadingAsset Stage = "UPLOADING_ASSET"
	StageAssetUploaded  Stage = "ASSET_UPLOADED"
	StagePublishing     Stage = "PUBLISHING_PRODUCT"
	StagePublished      Stage = "PRODUCT_PUBLISHED"
	StageSyncing        Stage = "SYNCING_STOREFRONT"
	StageDone           Stage = "DONE"
	StageFailed         Stage = "FAILED"
	StageSkipped        Stage = "SKIPPED"
)

// Settled reports whether a stage is an end state.
func (s Stage) Settled() bool {
	return s == StageDone || s == StageFailed || s == StageSkipped
}

// CanTransition reports whether a design may move between two stages. The
// happy path is strictly linear; FAILED is reachable from any unsettled
// stage, SKIPPED only right after fingerprinting, and DONE directly from
// PRODUCT_PUBLISHED when no storefront is configured.
func CanTransition(from, to Stage) bool {
	switch to {
	case StageFailed:
		return !from.Settled()
	case StageSkipped:
		return from == StageFingerprinted
	}

	switch from {
	case StageNew:
		return to == StageFingerprinted
	case StageFingerprinted:
		return to == StageUploadingAsset
	case StageUploadingAsset:
		return to == StageAssetUploaded
	case StageAssetUploaded:
		return to == StagePublishing
	case StagePublishing:
		return to == StagePublished
	case StagePublished:
		return to == StageSyncing || to == StageDone
	case StageSyncing:
		return to == StageDone
	}

	return false
}
