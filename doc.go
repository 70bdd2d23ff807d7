// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package owslave is a container for a 1-wire slave implementation.
//
// The protocol engine lives in owslave/owslave, the GPIO adapter in gpiohal
// and the bus simulator in owslave/owslavetest. cmd/owsim ties them together.
package owslave
