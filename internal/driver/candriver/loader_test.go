package candriver

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "frames.csv")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadFrameMapDefaultsToLittleEndian(t *testing.T) {
	path := writeCSV(t, "frame_id,frame_name,dlc,signal_name,start_bit,bit_length,signed,factor,offset,min,max,default\n"+
		"0x10,test,8,value,0,16,false,1,0,0,65535,0\n")

	fm, err := LoadFrameMap(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fd, err := fm.FrameByName("test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fd.Signals[0].Order != LittleEndian {
		t.Fatalf("expected default byte order LittleEndian, got %v", fd.Signals[0].Order)
	}
}

func TestLoadFrameMapParsesMotorolaByteOrder(t *testing.T) {
	path := writeCSV(t, "frame_id,frame_name,dlc,signal_name,start_bit,bit_length,signed,byte_order,factor,offset,min,max,default\n"+
		"0x10,test,8,value,56,32,false,motorola,1,0,0,4294967295,0\n")

	fm, err := LoadFrameMap(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fd, err := fm.FrameByName("test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fd.Signals[0].Order != BigEndian {
		t.Fatalf("expected BigEndian, got %v", fd.Signals[0].Order)
	}

	data, id, err := fm.EncodeFrame("test", map[string]float64{"value": 0xAABBCCDD})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := fm.DecodeFrame(id, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["value"] != 0xAABBCCDD {
		t.Fatalf("round trip through CSV-loaded motorola signal: want %v got %v", uint32(0xAABBCCDD), got["value"])
	}
}

func TestLoadFrameMapRejectsUnknownByteOrder(t *testing.T) {
	path := writeCSV(t, "frame_id,frame_name,dlc,signal_name,start_bit,bit_length,signed,byte_order,factor,offset,min,max,default\n"+
		"0x10,test,8,value,0,16,false,pdp,1,0,0,65535,0\n")

	if _, err := LoadFrameMap(path); err == nil {
		t.Fatalf("expected an error for an unrecognized byte_order value")
	}
}
