// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Overlapped execution
//
// A Context owns a fixed set of queues. Operations on one queue run in
// enqueue order; operations on different queues are unordered unless an
// operation names a queue in its wait set, in which case it starts only
// after everything enqueued on that queue before it has completed. Enqueue
// never blocks the host. Drain is the only blocking call and it is what
// makes device results visible to later host reads.
//
// Device memory is a separate pool. A host buffer is usable by kernels only
// between EnterData and ExitData; launching a kernel against an absent
// region is a precondition error reported before anything is enqueued.
//
// The engine package builds the sequential and overlapped three-stage
// pipelines on top of this runtime, and Verify compares their outputs.
package gudaflow
