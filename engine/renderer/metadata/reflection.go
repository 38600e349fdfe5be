package metadata

// Type identifiers used to instantiate components from a render configuration
// document. They are persisted in configuration files and must never change.
const (
	AttachmentTypeName        = "attachment"
	AttachmentTypeID   uint32 = 402
	LayerTypeName             = "render"
	LayerTypeID        uint32 = 403
)
