package bmpsteg

import (
	"errors"
	"fmt"

	"github.com/zedseven/bmpsteg/internal/codec"
)

const (
	bitsPerByte   int64 = 8
	sizeFieldBits int64 = 32
	bytesPerPixel int64 = 3

	// HeaderSize is the number of leading carrier bytes that are copied verbatim.
	HeaderSize = 54
	// MagicMarker is embedded first so that Dig can tell a stego image from a plain one.
	MagicMarker = "#*"
	// DefaultStegoPath is where Hide writes when no output path is given.
	DefaultStegoPath = "stego.bmp"
	// DefaultDigName is the output name Dig uses, before the hidden extension, when none is given.
	DefaultDigName = "decoded"

	widthOffset  = 18
	heightOffset = 22
	bppOffset    = 28

	VersionMax uint8 = 1
	VersionMid uint8 = 0
	VersionMin uint8 = 0
)

// secretExtensions are the file types Hide accepts as secrets.
var secretExtensions = []string{".txt", ".c", ".h", ".sh", ".md", ".csv", ".json", ".bin"}

// Output levels

// OutputLevel is the amount of progress output Hide and Dig print.
type OutputLevel int

const (
	OutputQuiet OutputLevel = iota // Nothing at all.
	OutputSteps                    // One line per completed stage.
	OutputInfo                     // Stage lines plus image and payload details.
	OutputDebug                    // Everything, including cursor positions.
)

func printlnLvl(outputLevel, minLevel OutputLevel, a ...interface{}) {
	if outputLevel >= minLevel {
		fmt.Println(a...)
	}
}

// Stages

// Stage is one step of the hide or dig pipeline.
type Stage int

const (
	StageOpenSources Stage = iota
	StageCheckCapacity
	StageCopyHeader
	StageEmbedMagic
	StageEmbedExtensionLength
	StageEmbedExtension
	StageEmbedPayloadLength
	StageEmbedPayload
	StageCopyTail
	StageSkipHeader
	StageVerifyMagic
	StageExtractExtensionLength
	StageExtractExtension
	StageExtractPayloadLength
	StageExtractPayload
	StageDone
	StageFailed
)

var stageNames = map[Stage]string{
	StageOpenSources:            "OpenSources",
	StageCheckCapacity:          "CheckCapacity",
	StageCopyHeader:             "CopyHeader",
	StageEmbedMagic:             "EmbedMagic",
	StageEmbedExtensionLength:   "EmbedExtensionLength",
	StageEmbedExtension:         "EmbedExtension",
	StageEmbedPayloadLength:     "EmbedPayloadLength",
	StageEmbedPayload:           "EmbedPayload",
	StageCopyTail:               "CopyTail",
	StageSkipHeader:             "SkipHeader",
	StageVerifyMagic:            "VerifyMagic",
	StageExtractExtensionLength: "ExtractExtensionLength",
	StageExtractExtension:       "ExtractExtension",
	StageExtractPayloadLength:   "ExtractPayloadLength",
	StageExtractPayload:         "ExtractPayload",
	StageDone:                   "Done",
	StageFailed:                 "Failed",
}

// String returns the name of the stage, or "<unknown>" if unknown.
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "<unknown>"
}

// Event reports that a stage finished. Read and Written are the carrier and destination
// positions at that point. Err is only set on StageFailed.
type Event struct {
	Stage   Stage
	Read    int64
	Written int64
	Err     error
}

// Observer receives an Event each time a stage completes. It may be nil.
type Observer func(Event)

func (o Observer) notify(ev Event) {
	if o != nil {
		o(ev)
	}
}

var stageMessages = map[Stage]string{
	StageOpenSources:            "Opened the source files.",
	StageCheckCapacity:          "Checked the image capacity.",
	StageCopyHeader:             "Copied the BMP header.",
	StageEmbedMagic:             "Encoded the magic string.",
	StageEmbedExtensionLength:   "Encoded the file extension size.",
	StageEmbedExtension:         "Encoded the file extension.",
	StageEmbedPayloadLength:     "Encoded the file size.",
	StageEmbedPayload:           "Encoded the file data.",
	StageCopyTail:               "Copied the remaining image data.",
	StageSkipHeader:             "Read the BMP header.",
	StageVerifyMagic:            "Found the magic string.",
	StageExtractExtensionLength: "Decoded the file extension size.",
	StageExtractExtension:       "Decoded the file extension.",
	StageExtractPayloadLength:   "Decoded the file size.",
	StageExtractPayload:         "Decoded the file data.",
	StageDone:                   "Finished the image.",
}

// stagePrinter returns an Observer that prints one line per stage at outputLevel.
func stagePrinter(outputLevel OutputLevel) Observer {
	return func(ev Event) {
		if ev.Stage == StageFailed {
			printlnLvl(outputLevel, OutputInfo, fmt.Sprintf("Stopped after %d B read, %d B written: %v", ev.Read, ev.Written, ev.Err))
			return
		}
		printlnLvl(outputLevel, OutputSteps, stageMessages[ev.Stage])
		printlnLvl(outputLevel, OutputDebug, fmt.Sprintf("\t%v: read %d B, written %d B", ev.Stage, ev.Read, ev.Written))
	}
}

type step struct {
	stage Stage
	run   func() error
}

// runSteps runs steps in order and stops at the first failure, which is returned wrapped with its stage.
func runSteps(steps []step, s *codec.Stream, observe Observer) error {
	for _, st := range steps {
		if err := st.run(); err != nil {
			observe.notify(Event{Stage: StageFailed, Read: s.Read, Written: s.Written, Err: err})
			return fmt.Errorf("%v: %w", st.stage, err)
		}
		observe.notify(Event{Stage: st.stage, Read: s.Read, Written: s.Written})
	}
	observe.notify(Event{Stage: StageDone, Read: s.Read, Written: s.Written})
	return nil
}

// Error types

// InvalidFormatError is returned when a configuration value is missing or malformed.
type InvalidFormatError struct {
	ErrorDesc string
}

func (e InvalidFormatError) Error() string {
	if len(e.ErrorDesc) > 0 {
		return e.ErrorDesc
	}
	return "The provided data is of an invalid format."
}

// FileOpenError is returned when a carrier, secret or destination file can't be accessed.
type FileOpenError struct {
	Path string
	Err  error
}

func (e *FileOpenError) Error() string {
	return fmt.Sprintf("Unable to open the file '%v': %v", e.Path, e.Err)
}

func (e *FileOpenError) Unwrap() error {
	return e.Err
}

// UnsupportedFormatError is returned when a file has the wrong extension, or a carrier
// is not an uncompressed 24-bit BMP.
type UnsupportedFormatError struct {
	Path   string
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	if len(e.Path) > 0 {
		return fmt.Sprintf("The file '%v' is not supported: %v", e.Path, e.Reason)
	}
	return fmt.Sprintf("The carrier is not supported: %v", e.Reason)
}

// InsufficientCapacityError is returned when the secret and its metadata need more bits than the carrier has.
type InsufficientCapacityError struct {
	Available int64
	Required  int64
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("There is not enough space available to store the provided file within the provided image: "+
		"%d bits are required but only %d are available.", e.Required, e.Available)
}

// CorruptedStegoError is returned by Dig when the image holds no hidden file, or a damaged one.
type CorruptedStegoError struct {
	Reason     string
	InnerError error
}

func (e *CorruptedStegoError) Error() string {
	if e.InnerError != nil {
		return fmt.Sprintf("The image does not hold a valid hidden file: %v Inner error: %v", e.Reason, e.InnerError)
	}
	return fmt.Sprintf("The image does not hold a valid hidden file: %v", e.Reason)
}

func (e *CorruptedStegoError) Unwrap() error {
	return e.InnerError
}

// corruptOnShortCarrier turns a carrier that ran out mid-section into a CorruptedStegoError.
func corruptOnShortCarrier(err error) error {
	var ex *codec.ExhaustedCarrierError
	if errors.As(err, &ex) {
		return &CorruptedStegoError{Reason: "The hidden data runs past the end of the image.", InnerError: err}
	}
	return err
}

// Library methods

// Version returns the version of the embedded format and tool.
func Version() string {
	return fmt.Sprintf("%02d.%02d.%02d", VersionMax, VersionMid, VersionMin)
}
