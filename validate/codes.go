package validate

// Stable finding codes. The families follow the check layers: 1xxx
// schema, 2xxx references, 3xxx build and mesh bounds, 4xxx strict
// rules, 5xxx geometry, 6xxx displacement.
const (
	CodeMissingID            = 1001
	CodeInvalidObjectType    = 1002
	CodeEmptyPropertyGroup   = 1003
	CodeObjectWithoutContent = 1004
	CodeBeamSameVertex       = 1005

	CodeUnknownPropertyGroup   = 2001
	CodeTrianglePIDUnknown     = 2002
	CodeComponentUnknown       = 2003
	CodeSliceStackUnknown      = 2004
	CodeVolumetricStackUnknown = 2005
	CodeTextureUnknown         = 2006
	CodeCompositeBaseUnknown   = 2007
	CodeMultiWidthMismatch     = 2008
	CodeCompositeWidthMismatch = 2009
	CodeReferenceCycle         = 2010
	CodeBooleanBaseUnknown     = 2102
	CodeBooleanBaseInvalid     = 2101
	CodeBooleanOperandInvalid  = 2103
	CodeBooleanOperandUnknown  = 2104

	CodeTriangleOutOfBounds = 3001
	CodeBuildItemUnknown    = 3002
	CodeBuildItemOtherType  = 3010
	CodeBeamOutOfBounds     = 3003

	CodeDuplicateMetadata  = 4001
	CodeUnitMismatch       = 4002
	CodeInvalidUUID        = 4003
	CodeCompositeRatioSum  = 4004
	CodeDuplicateResources = 4005

	CodeDegenerateTriangle    = 5001
	CodeNonManifoldEdge       = 5002
	CodeNonManifoldVertex     = 5003
	CodeInconsistentWinding   = 5004
	CodeMultipleComponents    = 5005
	CodeSelfIntersection      = 5006

	CodeDisplacementNormalCount   = 6001
	CodeDisplacementGradientCount = 6002
	CodeDisplacementGradientInfo  = 6003
	CodeDisplacementNormalLength  = 6004
)
