package exporter

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"tilesink/pkg/catalog"
	"tilesink/pkg/dzi"
	"tilesink/pkg/rpc"
	"tilesink/pkg/sink"
)

// PrintOutcome 打印一次构建的结果
func PrintOutcome(w io.Writer, o rpc.Outcome) {
	switch o.Kind {
	case rpc.KindIncomplete:
		fmt.Fprintf(w, "⏳ Incomplete: %s\n", o.Reason)
	case rpc.KindFailed:
		msg := "unknown error"
		if o.Error != nil {
			msg = o.Error.Message
		}
		fmt.Fprintf(w, "❌ Failed: %s\n", msg)
	case rpc.KindBuilt:
		fmt.Fprintf(w, "✅ Built\n")
		if o.Descriptor != nil {
			PrintDescriptor(w, o.Descriptor)
		}
		if o.Fingerprint != "" {
			fmt.Fprintf(w, "Fingerprint: %s\n", o.Fingerprint)
		}
	default:
		fmt.Fprintf(w, "? Unknown outcome %q\n", o.Kind)
	}
}

// PrintDescriptor 打印 sink 的描述
func PrintDescriptor(w io.Writer, d *sink.Descriptor) {
	fmt.Fprintf(w, "Storage:   %s\n", d.StorageURL)
	if d.Archive != "" {
		fmt.Fprintf(w, "Archive:   %s\n", d.Archive)
	}
	fmt.Fprintf(w, "XML:       %s\n", d.XMLPath)
	fmt.Fprintf(w, "Level:     %d (%s)\n", d.LevelIndex, d.LevelPath)
	fmt.Fprintf(w, "Shape:     %dx%d, %d channel(s)\n", d.Shape.X, d.Shape.Y, d.Shape.C)
	fmt.Fprintf(w, "Tile:      %dx%d\n", d.TileShape.X, d.TileShape.Y)
	PrintImage(w, d.Image)
}

// PrintImage 打印 DZI 元数据和层表
func PrintImage(w io.Writer, img dzi.Image) {
	fmt.Fprintf(w, "Format:    %s\n", img.Format)
	fmt.Fprintf(w, "Size:      %dx%d\n", img.Width, img.Height)
	fmt.Fprintf(w, "TileSize:  %d (overlap %d)\n", img.TileSize, img.Overlap)
	fmt.Fprintf(w, "Levels:    %d\n\n", img.NumLevels())

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "LEVEL\tWIDTH\tHEIGHT\tTILES\n")
	for i, r := range img.Levels() {
		cols := ceilDiv(r.Width, img.TileSize)
		rows := ceilDiv(r.Height, img.TileSize)
		fmt.Fprintf(tw, "%d\t%d\t%d\t%dx%d\n", i, r.Width, r.Height, cols, rows)
	}
	tw.Flush()
}

// PrintJobs 以表格形式打印导出任务
func PrintJobs(w io.Writer, jobs []rpc.Job) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No export jobs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "ID\tSTATUS\tLEVELS\tCREATED\tTARGET\n")
	for _, j := range jobs {
		created := time.Unix(j.CreatedAt, 0).Format(time.DateTime)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", shortID(j.ID), j.Status, j.NumLevels, created, j.TargetPath)
	}
	tw.Flush()

	for _, j := range jobs {
		if j.Error != "" {
			fmt.Fprintf(w, "\n%s: %s\n", shortID(j.ID), j.Error)
		}
	}
}

// PrintCatalog 打印扫描到的金字塔
func PrintCatalog(w io.Writer, entries []catalog.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No pyramids found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "KIND\tFORMAT\tSIZE\tLEVELS\tPATH\n")
	for _, e := range entries {
		kind := "dzi"
		if e.Archive {
			kind = "dzip"
		}
		if e.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t%s (broken: %v)\n", kind, e.Path, e.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%d\t%s\n",
			kind, e.Image.Format, e.Image.Width, e.Image.Height, e.Image.NumLevels(), e.Path)
	}
	tw.Flush()
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
