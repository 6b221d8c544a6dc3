package types

import "fmt"

// Point 是 x/y/z/c 四个轴上的坐标
// X: 宽, Y: 高, Z: 深度, C: 通道
type Point struct {
	X int `cbor:"x" json:"x"`
	Y int `cbor:"y" json:"y"`
	Z int `cbor:"z" json:"z"`
	C int `cbor:"c" json:"c"`
}

// Shape 是各轴上的长度
type Shape struct {
	X int `cbor:"x" json:"x"`
	Y int `cbor:"y" json:"y"`
	Z int `cbor:"z" json:"z"`
	C int `cbor:"c" json:"c"`
}

func (s Shape) String() string {
	return fmt.Sprintf("Shape(x=%d, y=%d, z=%d, c=%d)", s.X, s.Y, s.Z, s.C)
}

// ToInterval 返回从原点开始的区间
func (s Shape) ToInterval() Interval {
	return Interval{Stop: Point{X: s.X, Y: s.Y, Z: s.Z, C: s.C}}
}

// Interval 是一个 [Start, Stop) 的 n 维区间，用来描述导出的数组区域
type Interval struct {
	Start Point `cbor:"start" json:"start"`
	Stop  Point `cbor:"stop" json:"stop"`
}

func (i Interval) String() string {
	return fmt.Sprintf("Interval(x=[%d,%d), y=[%d,%d), z=[%d,%d), c=[%d,%d))",
		i.Start.X, i.Stop.X, i.Start.Y, i.Stop.Y, i.Start.Z, i.Stop.Z, i.Start.C, i.Stop.C)
}

// Shape 返回区间各轴的长度
func (i Interval) Shape() Shape {
	return Shape{
		X: i.Stop.X - i.Start.X,
		Y: i.Stop.Y - i.Start.Y,
		Z: i.Stop.Z - i.Start.Z,
		C: i.Stop.C - i.Start.C,
	}
}

// Clamped 将区间裁剪到 limit 之内
func (i Interval) Clamped(limit Interval) Interval {
	return Interval{
		Start: Point{
			X: max(i.Start.X, limit.Start.X),
			Y: max(i.Start.Y, limit.Start.Y),
			Z: max(i.Start.Z, limit.Start.Z),
			C: max(i.Start.C, limit.Start.C),
		},
		Stop: Point{
			X: min(i.Stop.X, limit.Stop.X),
			Y: min(i.Stop.Y, limit.Stop.Y),
			Z: min(i.Stop.Z, limit.Stop.Z),
			C: min(i.Stop.C, limit.Stop.C),
		},
	}
}

// Split 按 tile 在 x/y/z 上切分区间，边缘的 tile 会被裁剪
// 通道轴不切分，每个 tile 带着完整的通道
func (i Interval) Split(tile Shape) []Interval {
	if tile.X <= 0 || tile.Y <= 0 {
		return nil
	}
	tz := tile.Z
	if tz <= 0 {
		tz = 1
	}

	var out []Interval
	for z := i.Start.Z; z < i.Stop.Z; z += tz {
		for y := i.Start.Y; y < i.Stop.Y; y += tile.Y {
			for x := i.Start.X; x < i.Stop.X; x += tile.X {
				piece := Interval{
					Start: Point{X: x, Y: y, Z: z, C: i.Start.C},
					Stop:  Point{X: x + tile.X, Y: y + tile.Y, Z: z + tz, C: i.Stop.C},
				}
				out = append(out, piece.Clamped(i))
			}
		}
	}
	return out
}

// IsTile 判断区间是否恰好是 full 按 tile 切分后的某一块
// 起点必须对齐 tile 网格；终点要么是完整的 tile，要么被 full 的边界裁剪
func (i Interval) IsTile(tile Shape, full Interval) bool {
	if tile.X <= 0 || tile.Y <= 0 {
		return false
	}
	if (i.Start.X-full.Start.X)%tile.X != 0 || (i.Start.Y-full.Start.Y)%tile.Y != 0 {
		return false
	}
	if i.Start.X < full.Start.X || i.Start.Y < full.Start.Y {
		return false
	}
	if i.Start.X >= full.Stop.X || i.Start.Y >= full.Stop.Y {
		return false
	}
	wantStopX := min(i.Start.X+tile.X, full.Stop.X)
	wantStopY := min(i.Start.Y+tile.Y, full.Stop.Y)
	return i.Stop.X == wantStopX && i.Stop.Y == wantStopY
}
