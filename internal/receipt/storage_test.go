package receipt

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(filepath.Join(tmpDir, "uploads"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("creates the storage directory", func() {
		Expect(filepath.Join(tmpDir, "uploads")).To(BeADirectory())
	})

	Describe("Save", func() {
		var (
			filename  string
			savedName string
			err       error
		)

		BeforeEach(func() {
			filename = "abc_receipt.jpg"
		})

		JustBeforeEach(func() {
			savedName, err = storage.Save(filename, []byte("image bytes"))
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("returns the name to retrieve it by", func() {
				Expect(savedName).To(Equal("abc_receipt.jpg"))
			})

			It("writes the file to disk", func() {
				Expect(filepath.Join(tmpDir, "uploads", "abc_receipt.jpg")).To(BeAnExistingFile())
			})
		})

		When("the name tries to leave the directory", func() {
			BeforeEach(func() {
				filename = "../../escape.jpg"
			})

			It("keeps the file inside the storage directory", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(savedName).To(Equal("escape.jpg"))
				Expect(filepath.Join(tmpDir, "escape.jpg")).NotTo(BeAnExistingFile())
				Expect(filepath.Join(tmpDir, "uploads", "escape.jpg")).To(BeAnExistingFile())
			})
		})

		When("the name is empty", func() {
			BeforeEach(func() {
				filename = ""
			})

			It("returns an error", func() {
				Expect(err).To(MatchError(ContainSubstring("invalid file name")))
			})
		})
	})

	Describe("Get", func() {
		When("the file exists", func() {
			BeforeEach(func() {
				_, err := storage.Save("r.png", []byte("png bytes"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("returns the data", func() {
				data, err := storage.Get("r.png")
				Expect(err).NotTo(HaveOccurred())
				Expect(string(data)).To(Equal("png bytes"))
			})
		})

		When("the file does not exist", func() {
			It("returns the error", func() {
				_, err := storage.Get("missing.png")
				Expect(err).To(MatchError(os.ErrNotExist))
			})
		})
	})

	Describe("Delete", func() {
		When("the file exists", func() {
			BeforeEach(func() {
				_, err := storage.Save("r.png", []byte("png bytes"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("removes it", func() {
				Expect(storage.Delete("r.png")).To(Succeed())
				Expect(filepath.Join(tmpDir, "uploads", "r.png")).NotTo(BeAnExistingFile())
			})
		})

		When("the file does not exist", func() {
			It("returns the error", func() {
				Expect(storage.Delete("missing.png")).To(MatchError(os.ErrNotExist))
			})
		})
	})
})
