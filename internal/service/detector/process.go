package detector

import (
	"errors"
	"os"

	"github.com/mitchellh/go-ps"
)

// terminateTree kills the worker and every process it spawned.
// Descendants are collected before the root is killed because they are
// re-parented once it dies and can no longer be traced back to it.
func terminateTree(process *os.Process) error {
	if process == nil {
		return nil
	}

	descendants, listErr := descendantsOf(process.Pid)

	err := process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		err = nil
	}

	for _, pid := range descendants {
		child, findErr := os.FindProcess(pid)
		if findErr != nil {
			continue
		}

		_ = child.Kill()
	}

	if err != nil {
		return err
	}

	return listErr
}

// descendantsOf walks the process table breadth-first from root.
func descendantsOf(root int) ([]int, error) {
	processList, err := ps.Processes()
	if err != nil {
		return nil, err
	}

	children := make(map[int][]int, len(processList))
	for _, process := range processList {
		children[process.PPid()] = append(children[process.PPid()], process.Pid())
	}

	var (
		result []int
		queue  = []int{root}
	)

	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]

		for _, child := range children[pid] {
			result = append(result, child)
			queue = append(queue, child)
		}
	}

	return result, nil
}
