// Package process runs helper subprocesses (ffmpeg decoders and encoders)
// whose stdin or stdout carries raw frame bytes.
//
// A Pipe starts the command in its own process group, streams stderr lines
// through a LogParser into the logger, and shuts down in stages: close stdin
// so encoders can finalize their output, then SIGINT, then SIGKILL.
//
//	p := process.NewPipe("stream1-decode", cmd, process.ModeRead, logger)
//	if err := p.Start(); err != nil {
//	    return err
//	}
//	defer p.Close()
//	err := p.ReadFull(buf)
package process
