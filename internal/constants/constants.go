package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

// Cache key prefixes. Keys are "<prefix><id>".
const (
	CacheKeySearch  = "search:"
	CacheKeyCard    = "card:"
	CacheKeyPDFText = "pdf_text:"
)

const (
	ServiceName = "kadrisk"
	BreakerName = "kad_site"
)

// MinUsableTextChars is the shortest extracted act text worth classifying.
const MinUsableTextChars = 200

// Site paths.
const (
	PathSearch   = "/Kad/SearchInstances"
	PathCard     = "/Card/"
	PathPDF      = "/Document/Pdf/"
	PDFStampArgs = "?isAddStamp=True"
)

// Request kinds used in metrics and logs.
const (
	KindWarmup = "warmup"
	KindSearch = "search"
	KindCard   = "card"
	KindPDF    = "pdf"
)

// Run statuses.
const (
	StatusOK      = "ok"
	StatusBlocked = "blocked"
	StatusError   = "error"
)
