// Package scene turns the file-churn records of one commit into a
// deterministic 3D scene.
//
// The pipeline is leaf-first: Filter narrows the active records, Layout
// places them on a jittered spiral, Classify colors them, FrameCamera fits a
// camera around the result and Dispatcher maps pointer events on drawables
// back to file selections. Assembler composes the stages and decides, by
// explicit dependency comparison, which of them must rerun for a given input.
//
// Everything in this package is synchronous and pure apart from the
// Assembler's caches, its rotation accumulator and the camera pose.
package scene
