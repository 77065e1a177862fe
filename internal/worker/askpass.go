package worker

// askpassScript runs the command given in argv under a pseudo terminal and
// answers password prompts with the first line read from stdin. It is pushed
// into the session folder of hosts that relay uploads from a seed.
const askpassScript = `#!/usr/bin/env python3
import os
import pty
import select
import sys


def main():
    password = sys.stdin.readline().rstrip("\n")
    pid, fd = pty.fork()
    if pid == 0:
        os.execvp(sys.argv[1], sys.argv[1:])
    buf = b""
    while True:
        try:
            ready, _, _ = select.select([fd], [], [], 0.1)
        except InterruptedError:
            continue
        if not ready:
            done, status = os.waitpid(pid, os.WNOHANG)
            if done:
                return os.waitstatus_to_exitcode(status)
            continue
        try:
            data = os.read(fd, 1024)
        except OSError:
            break
        if not data:
            break
        sys.stdout.write(data.decode("utf-8", "ignore"))
        sys.stdout.flush()
        buf = (buf + data)[-256:]
        if b"assword:" in buf:
            os.write(fd, (password + "\n").encode())
            buf = b""
        elif b"continue connecting" in buf:
            os.write(fd, b"yes\n")
            buf = b""
    _, status = os.waitpid(pid, 0)
    return os.waitstatus_to_exitcode(status)


if __name__ == "__main__":
    sys.exit(main())
`
