package types

// DataType identifies the element type of a tensor.
type DataType string

const (
	DataTypeUint8   DataType = "uint8"
	DataTypeUint16  DataType = "uint16"
	DataTypeUint32  DataType = "uint32"
	DataTypeUint64  DataType = "uint64"
	DataTypeInt8    DataType = "int8"
	DataTypeInt16   DataType = "int16"
	DataTypeInt32   DataType = "int32"
	DataTypeInt64   DataType = "int64"
	DataTypeFloat16 DataType = "fp16"
	DataTypeFloat32 DataType = "fp32"
	DataTypeFloat64 DataType = "fp64"
)

// ByteSize returns the size in bytes of one element, or 0 for an
// unknown data type.
func (d DataType) ByteSize() uint64 {
	switch d {
	case DataTypeUint8, DataTypeInt8:
		return 1
	case DataTypeUint16, DataTypeInt16, DataTypeFloat16:
		return 2
	case DataTypeUint32, DataTypeInt32, DataTypeFloat32:
		return 4
	case DataTypeUint64, DataTypeInt64, DataTypeFloat64:
		return 8
	default:
		return 0
	}
}

// ElementCount returns the number of elements described by dims, or 0
// if any dimension is non-positive.
func ElementCount(dims []int64) uint64 {
	if len(dims) == 0 {
		return 0
	}
	count := uint64(1)
	for _, d := range dims {
		if d <= 0 {
			return 0
		}
		count *= uint64(d)
	}
	return count
}
