package config

// SourceFileExt is the structured language.
const SourceFileExt = ".dvi"

// StreamFileExt is the postfix command-stream text form.
const StreamFileExt = ".dvs"

// SourceFileExtensions are all recognized source file extensions
var SourceFileExtensions = []string{SourceFileExt, StreamFileExt}

// Built-in function names
const (
	SinFuncName   = "sin"
	CosFuncName   = "cos"
	SqrtFuncName  = "sqrt"
	AbsFuncName   = "abs"
	MinFuncName   = "min"
	MaxFuncName   = "max"
	LenFuncName   = "len"
	RangeFuncName = "range"
	PointFuncName = "point"
	UnpackName    = "unpack"
	RgbFuncName   = "rgb"
	RgbaFuncName  = "rgba"
	EmitFuncName  = "emit"
	PiConstName   = "pi"
)

// SelfName is the receiver bound inside record methods.
const SelfName = "self"

// TimeParamName is fed by the preview loop when a program declares it.
const TimeParamName = "time"

// Limits
const (
	MaxStackSize     = 4096
	MaxFrameCount    = 256
	MaxContextDepth  = 256
	MaxRangeLength   = 1 << 16
	MaxUnrolledCount = 256 // REPEAT iterations the verifier simulates one by one
	MaxQuoteNesting  = 64
)

// Default settings
const (
	DefaultWidth      = 256
	DefaultHeight     = 256
	DefaultBackground = "#ffffff"
	DefaultGRPCAddr   = ":7070"
	DefaultLogLevel   = "info"
	DefaultDriver     = "sqlite"
	DefaultDSN        = "file:dvi-traces.db"
	DefaultTPS        = 30
	DefaultScale      = 2
)
