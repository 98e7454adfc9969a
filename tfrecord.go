package detprep

// TFRecord export of a materialized split for the TensorFlow object detection API.

import (
	"fmt"
	"io"
	"log"
	"math"
	"os"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
	protos "github.com/sensorable/detprep/protos"
)

// TFFeatureMap maps feature names to their values. Values must be convertible to
// tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// TFRecordOptions configures ExportTFRecord.
type TFRecordOptions struct {
	RecordPath   string // Output path; shard suffixes are appended when NumShards > 1.
	LabelMapPath string // The label map is written here as prototext, if non-empty.
	NumShards    int
}

// toTFFeatures builds the feature map for the image at imagePath with the boxes of record.
func toTFFeatures(imagePath string, record LabelRecord, vocab *Vocabulary) (TFFeatureMap, error) {
	img, format, err := decodeImageConfig(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode the image metadata: %w", err)
	}
	imgData, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read the image: %w", err)
	}

	f := make(TFFeatureMap, 16)
	f["image/height"] = img.Height
	f["image/width"] = img.Width
	f["image/filename"] = imagePath
	f["image/source_id"] = imagePath
	f["image/encoded"] = imgData
	f["image/format"] = format

	n := len(record)
	xmins := make([]float32, n)
	ymins := make([]float32, n)
	xmaxs := make([]float32, n)
	ymaxs := make([]float32, n)
	classes := make([]string, n)
	classIDs := make([]int64, n)
	for i, b := range record {
		// Corners as fractions of the image size.
		c := b.Denormalize(1, 1)
		xmins[i] = float32(c[0])
		ymins[i] = float32(c[1])
		xmaxs[i] = float32(c[2])
		ymaxs[i] = float32(c[3])
		classes[i] = vocab.Name(b.ClassID)
		classIDs[i] = int64(b.ClassID + 1) // Id 0 is reserved for the background.
	}
	f["image/object/bbox/xmin"] = xmins
	f["image/object/bbox/ymin"] = ymins
	f["image/object/bbox/xmax"] = xmaxs
	f["image/object/bbox/ymax"] = ymaxs
	f["image/object/class/text"] = classes
	f["image/object/class/label"] = classIDs

	return f, nil
}

// ExportTFRecord converts split s of the dataset at root to one or more TFRecord files. Labels
// that cannot be read or whose image is missing are logged and skipped. It returns the number of
// examples written.
func ExportTFRecord(root string, s Split, vocab *Vocabulary, opts TFRecordOptions) (
	written int, err error) {

	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	l := Layout{Root: root}
	labelFiles, err := filesByExtInDir(l.LabelDir(s), labelFileExt)
	if err != nil {
		return 0, err
	}
	images, err := filesByExtInDir(l.ImageDir(s), imageExtensions...)
	if err != nil {
		return 0, err
	}
	imagesByStem := mapFileNamesToPaths(images)
	log.Printf("Exporting %d %s examples to TFRecord", len(labelFiles), s)

	numShards := opts.NumShards
	if numShards <= 0 {
		numShards = 1
	}
	shardSize := int(math.Ceil(float64(len(labelFiles)) / float64(numShards)))
	if shardSize == 0 {
		shardSize = 1
	}

	var shardFile *os.File
	defer func() {
		if shardFile != nil {
			closeWithErrCheck(shardFile, &err)
		}
	}()
	shardIdx := -1

	for i, labelPath := range labelFiles {
		// Check if a new shard file needs to be opened for writing.
		if i%shardSize == 0 {
			shardIdx++
			if shardFile != nil {
				if err := shardFile.Close(); err != nil {
					return written, err
				}
				shardFile = nil
			}

			shardPath := opts.RecordPath
			if numShards > 1 {
				shardPath += fmt.Sprintf("-%05d-of-%05d", shardIdx, numShards)
			}
			f, err := os.Create(shardPath)
			if err != nil {
				return written, fmt.Errorf("failed to create shard at %q: %w", shardPath, err)
			}
			shardFile = f
		}

		imagePath, found := imagesByStem[stemOf(labelPath)]
		if !found {
			log.Printf("No corresponding image file, skipping %q", labelPath)
			continue
		}
		record, err := readLabelFile(labelPath)
		if err != nil {
			log.Printf("Error while parsing, skipping %q: %v", labelPath, err)
			continue
		}

		features, err := toTFFeatures(imagePath, record, vocab)
		if err != nil {
			log.Printf("Failed to convert %q: %v", imagePath, err)
			continue
		}
		if err := writeTFRecordExample(shardFile, example.New(features)); err != nil {
			return written, fmt.Errorf("failed to write example: %w", err)
		}
		written++
	}

	if opts.LabelMapPath != "" {
		if err := SaveLabelMap(opts.LabelMapPath, vocab); err != nil {
			return written, err
		}
	}

	return written, nil
}

// readLabelFile parses the label file at path.
func readLabelFile(path string) (record LabelRecord, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer closeWithErrCheck(f, &err)

	return ReadLabelRecord(f)
}

// writeTFRecordExample serialises the example and writes it as a TFRecord to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}

// SaveLabelMap writes the vocabulary as a StringIntLabelMap in prototext format to path. Item ids
// are the class ids plus one.
func SaveLabelMap(path string, vocab *Vocabulary) (err error) {
	labelMap := &protos.StringIntLabelMap{
		Item: make([]*protos.StringIntLabelMapItem, 0, vocab.Len()),
	}
	for _, c := range vocab.Entries() {
		labelMap.Item = append(labelMap.Item, &protos.StringIntLabelMapItem{
			Name: proto.String(c.Name),
			Id:   proto.Int32(int32(c.ID + 1)),
		})
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create the label map file %q: %w", path, err)
	}
	defer closeWithErrCheck(file, &err)

	if err := proto.MarshalText(file, labelMap); err != nil {
		return fmt.Errorf("failed to write the label map %q: %w", path, err)
	}

	return nil
}

// LoadLabelMap reads a prototext label map and returns the class names ordered by id. Ids must
// be contiguous from 1.
func LoadLabelMap(path string) ([]string, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var labelMap protos.StringIntLabelMap
	if err := proto.UnmarshalText(string(text), &labelMap); err != nil {
		return nil, err
	}

	names := make([]string, len(labelMap.GetItem()))
	for _, item := range labelMap.GetItem() {
		k, v := item.GetName(), item.GetId()
		if k == "" || v <= 0 || int(v) > len(names) || names[v-1] != "" {
			return nil, fmt.Errorf("invalid entry: %s: %d", k, v)
		}
		names[v-1] = k
	}

	return names, nil
}
