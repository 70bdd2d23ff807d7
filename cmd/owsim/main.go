// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// owsim runs 1-wire slave engines on a simulated bus or on a GPIO pin.
package main

import "github.com/GermanBionicSystems/owslave/cmd/owsim/cmd"

func main() {
	cmd.Execute()
}
