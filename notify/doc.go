// Package notify delivers verification messages off the request path.
//
// [Dispatcher] queues messages and hands them to a [Sender] from a single
// worker goroutine. A full queue drops the message; registration never
// waits on delivery. [LogSender] is the development sender: it logs the
// verification link instead of mailing it.
package notify
