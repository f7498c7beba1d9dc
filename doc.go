// Command mp4edit crops and concatenates MP4 files.
//
//	mp4edit tracks in.mp4
//	mp4edit crop in.mp4 12.5 30 -o clip.mp4
//	mp4edit concat -o joined.mp4 a.mp4 b.mp4
//	mp4edit config init
package main
