// Copyright 2024 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package image

import (
	"bytes"
	"fmt"
	"os"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/partition/gpt"
)

// PartitionType is the GPT partition type the SiFive boot ROM loads a
// boot loader from.
const PartitionType gpt.Type = "2E54B353-1271-4842-806F-E436D6AF6985"

const (
	sectorSize     = 512
	firstSector    = 2048
	reservedSector = 34 // backup GPT header and entries
)

// writeGPT creates a disk image at path holding img in a single boot loader
// partition.
func writeGPT(path string, img []byte) error {
	sectors := (uint64(len(img)) + sectorSize - 1) / sectorSize
	size := int64(firstSector+sectors+reservedSector) * sectorSize

	os.Remove(path)
	d, err := diskfs.Create(path, size, diskfs.Raw, diskfs.SectorSize512)
	if err != nil {
		return fmt.Errorf("gpt: %w", err)
	}
	defer d.File.Close()

	table := &gpt.Table{
		LogicalSectorSize:  sectorSize,
		PhysicalSectorSize: sectorSize,
		ProtectiveMBR:      true,
		Partitions: []*gpt.Partition{{
			Start: firstSector,
			End:   firstSector + sectors - 1,
			Type:  PartitionType,
			Name:  "bbl",
		}},
	}
	if err := d.Partition(table); err != nil {
		return fmt.Errorf("gpt: partition: %w", err)
	}
	if _, err := d.WritePartitionContents(1, bytes.NewReader(img)); err != nil {
		return fmt.Errorf("gpt: write partition: %w", err)
	}
	return nil
}
