// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package handoff

// Memory provides byte access to fixed physical address ranges.
type Memory interface {
	Map(r Range) ([]byte, error)
}
