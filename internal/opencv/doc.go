// Package opencv provides gocv-backed pipeline collaborators: a VideoCapture
// source, a VideoWriter recording output, a background subtraction motion
// processor and a JPEG snapshotter. Building it requires OpenCV 4.
package opencv
