// Prepares object detection datasets: converts class folders, Pascal VOC, KITTI or YOLO sources
// into the images/labels layout with a train/val/test split and a manifest, and validates such
// datasets.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/sensorable/detprep"
)

var (
	convertFrom format // The source format.
	validate    bool   // Validate the dataset at -out instead of converting.

	cfg detprep.Config // The conversion run configuration.

	validateOpts detprep.ValidateOptions

	tfRecordOutPath          string // TFRecord output path prefix, one file per split.
	tfRecordLabelMapFilePath string // The TFRecord label map file.
	numShardFiles            int    // The number of shard files to create per split.
)

type format int

// The known source formats.
const (
	Unknown format = iota // If an unknown format is specified.
	Folders
	Kitti
	VOC
	YOLO
)

func formatFrom(s string) format {
	switch s {
	case "folders":
		return Folders
	case "kitti":
		return Kitti
	case "voc":
		return VOC
	case "yolo":
		return YOLO
	}
	return Unknown
}

func init() {
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage of %s:\n", filepath.Base(os.Args[0]))
		_, _ = fmt.Fprintln(os.Stderr, "  folders input options:\t-src <dir> -out <dir> [-classes <file>]")
		_, _ = fmt.Fprintln(os.Stderr, "  kitti input options:\t\t-src <dir> -out <dir> -classes <file>")
		_, _ = fmt.Fprintln(os.Stderr, "  voc input options:\t\t-src <dir> -out <dir> -classes <file>")
		_, _ = fmt.Fprintln(os.Stderr, "  yolo input options:\t\t-src <dir> -out <dir> -classes <file>")
		_, _ = fmt.Fprintln(os.Stderr, "  validation:\t\t\t-validate -out <dir> -classes <file>")
		_, _ = fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}

	printUsageAndExit := func(msg ...interface{}) {
		log.Print(msg...)
		flag.Usage()
		os.Exit(2)
	}

	from := flag.String("from", "", "The source `format` {folders, kitti, voc, yolo}")
	flag.BoolVar(&validate, "validate", validate,
		"Validate the dataset at -out against -classes instead of converting")

	// Path arguments.
	flag.StringVar(&cfg.Source, "src", cfg.Source,
		"The source `path`: the class folders (folders) or a directory with images/ and labels/"+
			" (kitti, voc, yolo)")
	flag.StringVar(&cfg.Output, "out", cfg.Output, "The dataset root `path`")
	flag.StringVar(&cfg.VocabularyPath, "classes", cfg.VocabularyPath,
		"The class list `path`, one class per line (optional for folders)")
	flag.StringVar(&cfg.ManifestPath, "manifest", cfg.ManifestPath,
		"The manifest output `path` (default <out>/"+detprep.DefaultManifestName+")")

	// Split arguments.
	split := flag.String("split", detprep.DefaultProportions.String(),
		"The train, val and test `proportions`; the remainder after train and val goes to test")
	flag.Int64Var(&cfg.Seed, "seed", 42, "The shuffle `seed` for the split")

	labelMappings := flag.String("map-labels", "",
		"Comma-separated list of old=new label (sub-)string replacements (kitti, voc)")

	// Validation arguments.
	flag.BoolVar(&validateOpts.CheckCoordinates, "check-coords", false,
		"Also check that box coordinates are in [0, 1]")
	flag.BoolVar(&validateOpts.CheckPairs, "check-pairs", false,
		"Also check that every label has an image and vice versa")
	flag.BoolVar(&validateOpts.CheckImages, "check-images", false,
		"Also check that every image decodes")

	// TFRecord export arguments.
	flag.StringVar(&tfRecordOutPath, "tfrecord-out", tfRecordOutPath,
		"Export every split to TFRecord files at `path`-<split> after conversion")
	flag.StringVar(&tfRecordLabelMapFilePath, "tfrecord-label-map-file", tfRecordLabelMapFilePath,
		"The TFRecord label map file `path`")
	flag.IntVar(&numShardFiles, "num-shards", 1, "The number of shard files to create per split")

	flag.Parse()

	if cfg.Output == "" {
		printUsageAndExit("Missing output path argument")
	}
	cfg.Output = filepath.Clean(cfg.Output)

	if validate {
		if cfg.VocabularyPath == "" {
			printUsageAndExit("Missing class list argument")
		}
		return
	}

	convertFrom = formatFrom(*from)
	if convertFrom == Unknown {
		printUsageAndExit("Unsupported input format")
	}
	if cfg.Source == "" {
		printUsageAndExit("Missing source path argument")
	}
	if convertFrom != Folders && cfg.VocabularyPath == "" {
		printUsageAndExit("Missing class list argument")
	}
	cfg.Source = filepath.Clean(cfg.Source)
	if cfg.Source == cfg.Output {
		printUsageAndExit("The source and output paths cannot be identical")
	}

	p, err := detprep.ParseProportions(*split)
	if err != nil {
		printUsageAndExit("Invalid value in -split: ", err)
	}
	cfg.Proportions = p

	if *labelMappings != "" {
		cfg.LabelMappings = strings.Split(*labelMappings, ",")
	}

	if tfRecordOutPath != "" && tfRecordLabelMapFilePath == "" {
		printUsageAndExit("Missing TFRecord label map path argument")
	}
}

func main() {
	if validate {
		runValidation()
		return
	}

	var summary detprep.Summary
	var err error
	switch convertFrom {
	case Folders:
		summary, err = detprep.ConvertFolders(cfg)
	case Kitti:
		summary, err = detprep.ConvertKitti(cfg)
	case VOC:
		summary, err = detprep.ConvertBoxes(cfg)
	case YOLO:
		summary, err = detprep.ConvertYOLO(cfg)
	default:
		err = fmt.Errorf("unsupported input format")
	}
	if err != nil {
		log.Fatal("Conversion failed: ", err)
	}
	log.Print("Conversion done: ", summary)

	if tfRecordOutPath != "" {
		exportTFRecords()
	}
}

// runValidation validates the dataset at cfg.Output and prints the report. Issues never fail the
// run.
func runValidation() {
	vocab, err := detprep.LoadVocabulary(cfg.VocabularyPath)
	if err != nil {
		log.Fatal("Validation failed: ", err)
	}

	report := detprep.Validate(cfg.Output, vocab, validateOpts)
	fmt.Println(report)
}

// exportTFRecords writes one TFRecord set per split of the converted dataset.
func exportTFRecords() {
	m, err := detprep.ReadManifest(cfg.Manifest())
	if err != nil {
		log.Fatal("Failed to read the manifest: ", err)
	}
	names, err := m.ClassNames()
	if err != nil {
		log.Fatal("Invalid manifest: ", err)
	}
	vocab, err := detprep.NewVocabulary(names)
	if err != nil {
		log.Fatal("Invalid manifest: ", err)
	}

	for _, s := range detprep.Splits {
		n, err := detprep.ExportTFRecord(cfg.Output, s, vocab, detprep.TFRecordOptions{
			RecordPath:   tfRecordOutPath + "-" + string(s),
			LabelMapPath: tfRecordLabelMapFilePath,
			NumShards:    numShardFiles,
		})
		if err != nil {
			log.Fatal("TFRecord export failed: ", err)
		}
		log.Printf("Successfully wrote %d %s examples to %s-%s", n, s, tfRecordOutPath, s)
	}
}
